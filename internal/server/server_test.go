package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/sensorapp/internal/capture"
	"github.com/luki/sensorapp/internal/hardware/fake"
	"github.com/luki/sensorapp/internal/metrics"
	"github.com/luki/sensorapp/internal/sensor"
	"github.com/luki/sensorapp/internal/sink"
)

type fixture struct {
	srv    *httptest.Server
	motion *fake.MotionManager
	alt    *fake.Source[sensor.AltitudeData]
	hub    *Hub
	sink   sensor.Sink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		motion: fake.NewMotionManager(false),
		alt:    fake.NewSource[sensor.AltitudeData](true),
		hub:    NewHub(nil),
	}
	ctx, cancel := context.WithCancel(context.Background())
	go f.hub.Run(ctx)

	m := metrics.New()
	f.sink = sink.Tee{&sink.Memory{}, f.hub}
	session := capture.NewSession(nil, nil)
	session.Add(
		sensor.NewAccelerometer(f.motion, f.sink, sensor.WithObserver(m)),
		sensor.NewBarometer(f.alt, f.sink, sensor.WithObserver(m)),
	)

	f.srv = httptest.NewServer(New(session, f.hub, m, nil).Handler())
	t.Cleanup(func() {
		f.srv.Close()
		cancel()
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthAndList(t *testing.T) {
	f := newFixture(t)

	var health healthResponse
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Sensors)
	assert.Zero(t, health.Reporting)
	assert.NotEmpty(t, health.Session)

	var list []capture.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/sensors", &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Accelerometer", list[0].Type)
	assert.False(t, list[0].Available)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)

	var st capture.Status
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sensors/barometer/start", &st))
	assert.True(t, st.Reporting)
	assert.True(t, f.alt.Subscribed())

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sensors/accelerometer/start", &st))
	assert.False(t, st.Reporting, "unavailable sensor stays idle")

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/sensors/Barometer/stop", &st))
	assert.False(t, st.Reporting)
	assert.False(t, f.alt.Subscribed())

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/sensors/barometer", &st))
	assert.Equal(t, "Barometer", st.Type)
}

func TestUnknownSensor(t *testing.T) {
	f := newFixture(t)
	var body map[string]string
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sensors/sonar/start", &body))
	assert.Contains(t, body["error"], "sonar")
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/sensors/gyroscope/start", &body))
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/sensors/barometer/start", nil))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/sensors/barometer/start", nil)
	f.alt.Tick(&sensor.AltitudeData{Pressure: 100}, nil)

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), `sensorapp_records_total{sensor="Barometer"} 1`)
	assert.Contains(t, sb.String(), `sensorapp_sensor_reporting{sensor="Barometer"} 1`)
}

func TestStreamDeliversRecords(t *testing.T) {
	f := newFixture(t)
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, 2*time.Second, 5*time.Millisecond)

	f.do(t, http.MethodPost, "/sensors/barometer/start", nil)
	f.alt.Tick(&sensor.AltitudeData{RelativeAltitude: 5, Pressure: 100}, nil)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var rec sensor.Record
	require.NoError(t, json.Unmarshal(msg, &rec))
	assert.Equal(t, sensor.Barometer, rec.Type)
	assert.Equal(t, sensor.Altitude{RelativeAltitude: 5, Pressure: 100}, rec.Data)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	c := &client{hub: h, send: make(chan []byte, 1)}
	h.register <- c
	require.Eventually(t, func() bool { return h.Clients() == 1 }, time.Second, time.Millisecond)

	rec := sensor.Record{Type: sensor.Thermometer, Date: "d", Data: sensor.Temperature{Celsius: 1}}
	h.AddLine(rec)
	h.AddLine(rec)

	require.Eventually(t, func() bool { return h.Clients() == 0 }, time.Second, time.Millisecond)
	<-c.send
	_, open := <-c.send
	assert.False(t, open, "send channel is closed on drop")
}

func TestAddLineWithoutClientsIsFree(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i < 2*clientBuffer; i++ {
		h.AddLine(sensor.Record{Type: sensor.Thermometer, Data: sensor.Temperature{}})
	}
	assert.Zero(t, h.Dropped())
}
