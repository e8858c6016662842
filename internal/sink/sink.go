// Package sink provides the destinations sensors append records to.
//
// Every type here satisfies sensor.Sink and is safe for concurrent use.
// Transports that can fail implement Writer and are turned into a Sink with
// Logged, which logs and counts failures instead of returning them.
package sink

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/metrics"
	"github.com/luki/sensorapp/internal/sensor"
)

// Writer is a record destination whose writes can fail.
type Writer interface {
	Write(ctx context.Context, rec sensor.Record) error
}

// WriteTimeout bounds a single Write issued through Logged.
const WriteTimeout = 5 * time.Second

type logged struct {
	name    string
	w       Writer
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// Logged adapts w to sensor.Sink. Failures are logged and counted under
// name; they never reach the sensor.
func Logged(name string, w Writer, logger *zap.Logger, m *metrics.Metrics) sensor.Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logged{name: name, w: w, logger: logger.With(zap.String("sink", name)), metrics: m}
}

func (l *logged) AddLine(rec sensor.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
	defer cancel()
	if err := l.w.Write(ctx, rec); err != nil {
		l.logger.Error("write record", zap.String("type", rec.Type.String()), zap.Error(err))
		l.metrics.SinkFailed(l.name)
	}
}

// Tee appends every record to each sink in order.
type Tee []sensor.Sink

// AddLine implements sensor.Sink.
func (t Tee) AddLine(rec sensor.Record) {
	for _, s := range t {
		s.AddLine(rec)
	}
}
