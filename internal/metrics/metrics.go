// Package metrics exposes Prometheus counters for the record stream.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/luki/sensorapp/internal/sensor"
)

// Metrics implements sensor.Observer. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	records        *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	deliveryErrors *prometheus.CounterVec
	sinkErrors     *prometheus.CounterVec
	reporting      *prometheus.GaugeVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorapp",
			Name:      "records_total",
			Help:      "Records appended to the sink, by sensor.",
		}, []string{"sensor"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorapp",
			Name:      "readings_dropped_total",
			Help:      "Hardware deliveries that carried no reading, by sensor.",
		}, []string{"sensor"}),
		deliveryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorapp",
			Name:      "delivery_errors_total",
			Help:      "Hardware deliveries that reported an error, by sensor.",
		}, []string{"sensor"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sensorapp",
			Name:      "sink_errors_total",
			Help:      "Records a sink failed to write, by sink.",
		}, []string{"sink"}),
		reporting: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sensorapp",
			Name:      "sensor_reporting",
			Help:      "1 while the sensor is reporting.",
		}, []string{"sensor"}),
	}
	m.registry.MustRegister(
		m.records,
		m.dropped,
		m.deliveryErrors,
		m.sinkErrors,
		m.reporting,
		prometheus.NewGoCollector(),
	)
	return m
}

// RecordEmitted implements sensor.Observer.
func (m *Metrics) RecordEmitted(t sensor.Type) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(t.String()).Inc()
}

// ReadingDropped implements sensor.Observer.
func (m *Metrics) ReadingDropped(t sensor.Type) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(t.String()).Inc()
}

// DeliveryFailed implements sensor.Observer.
func (m *Metrics) DeliveryFailed(t sensor.Type, _ error) {
	if m == nil {
		return
	}
	m.deliveryErrors.WithLabelValues(t.String()).Inc()
}

// ReportingChanged implements sensor.Observer.
func (m *Metrics) ReportingChanged(t sensor.Type, reporting bool) {
	if m == nil {
		return
	}
	v := 0.0
	if reporting {
		v = 1
	}
	m.reporting.WithLabelValues(t.String()).Set(v)
}

// SinkFailed counts one failed write on the named sink.
func (m *Metrics) SinkFailed(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
