package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/sensorapp/internal/sensor"
)

func TestObserverCounters(t *testing.T) {
	m := New()

	m.RecordEmitted(sensor.Accelerometer)
	m.RecordEmitted(sensor.Accelerometer)
	m.ReadingDropped(sensor.Barometer)
	m.DeliveryFailed(sensor.Barometer, errors.New("boom"))
	m.ReportingChanged(sensor.Gyroscope, true)
	m.SinkFailed("mqtt")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("Accelerometer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped.WithLabelValues("Barometer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveryErrors.WithLabelValues("Barometer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reporting.WithLabelValues("Gyroscope")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkErrors.WithLabelValues("mqtt")))

	m.ReportingChanged(sensor.Gyroscope, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.reporting.WithLabelValues("Gyroscope")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordEmitted(sensor.Accelerometer)
	m.SinkFailed("disk")
	assert.Nil(t, m.Registry())
}

func TestHandlerServesText(t *testing.T) {
	m := New()
	m.RecordEmitted(sensor.Thermometer)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `sensorapp_records_total{sensor="Thermometer"} 1`))
}
