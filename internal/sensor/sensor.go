package sensor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Sensor is the capability set the orchestrator relies on. Start and stop
// never fail from the caller's point of view: an unavailable sensor simply
// stays idle.
type Sensor interface {
	Type() Type
	IsAvailable() bool
	IsReporting() bool
	StartReporting()
	StopReporting()
}

// Observer is notified about the record stream of every sensor.
// Implementations must be safe for concurrent use.
type Observer interface {
	RecordEmitted(t Type)
	ReadingDropped(t Type)
	DeliveryFailed(t Type, err error)
	ReportingChanged(t Type, reporting bool)
}

type options struct {
	logger     *zap.Logger
	clock      clock.Clock
	dateLayout string
	interval   time.Duration
	observer   Observer
}

// Option configures a sensor at construction.
type Option func(*options)

// WithLogger sets the logger for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock sets the clock used to stamp records.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithDateLayout sets the layout of the "date" field.
func WithDateLayout(layout string) Option {
	return func(o *options) { o.dateLayout = layout }
}

// WithInterval overrides the sampling period. Zero leaves the hardware at
// its own event-driven rate.
func WithInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithObserver attaches an observer, typically metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// Base holds the state common to all sensors: the immutable type tag, the
// shared sink and the reporting flag. Only the lifecycle methods mutate the
// flag.
type Base struct {
	typ  Type
	sink Sink
	opts options

	reporting atomic.Bool
}

// Type returns the sensor's fixed type.
func (b *Base) Type() Type { return b.typ }

// IsReporting reports whether the sensor holds an active subscription.
func (b *Base) IsReporting() bool { return b.reporting.Load() }

func (b *Base) setReporting(v bool) {
	if b.reporting.Swap(v) != v && b.opts.observer != nil {
		b.opts.observer.ReportingChanged(b.typ, v)
	}
}

func (b *Base) stamp() (time.Time, string) {
	now := b.opts.clock.Now()
	return now, now.Format(b.opts.dateLayout)
}

func (b *Base) emit(data Payload) {
	now, date := b.stamp()
	if b.sink != nil {
		b.sink.AddLine(Record{Type: b.typ, Date: date, Time: now, Data: data})
	}
	if b.opts.observer != nil {
		b.opts.observer.RecordEmitted(b.typ)
	}
}

// reporter implements the Idle/Reporting state machine on top of one
// hardware source. The concrete sensors embed it and supply normalize.
type reporter[R any] struct {
	Base

	source    Source[R]
	normalize func(*R) Payload

	mu  sync.Mutex
	gen atomic.Uint64
}

func newReporter[R any](t Type, src Source[R], sink Sink, defInterval time.Duration, normalize func(*R) Payload, opts []Option) *reporter[R] {
	o := options{
		logger:     zap.NewNop(),
		clock:      clock.New(),
		dateLayout: DateLayout,
		interval:   defInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With(zap.String("sensor", t.String()))
	return &reporter[R]{
		Base:      Base{typ: t, sink: sink, opts: o},
		source:    src,
		normalize: normalize,
	}
}

// IsAvailable asks the hardware every time; an unwired source is
// unavailable.
func (r *reporter[R]) IsAvailable() bool {
	return r.source != nil && r.source.Available()
}

// StartReporting subscribes to the hardware. It is a no-op when the
// hardware is missing or unavailable, and when already reporting.
func (r *reporter[R]) StartReporting() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.IsReporting() {
		r.opts.logger.Debug("already reporting")
		return
	}
	if r.source == nil {
		r.opts.logger.Warn("hardware source not wired, not reporting")
		return
	}
	if !r.source.Available() {
		r.opts.logger.Warn("sensor not available, not reporting")
		return
	}

	gen := r.gen.Add(1)
	r.setReporting(true)
	if r.opts.interval > 0 {
		r.source.SetUpdateInterval(r.opts.interval)
	}
	r.source.StartUpdates(func(reading *R, err error) {
		r.deliver(gen, reading, err)
	})
	r.opts.logger.Info("reporting started", zap.Duration("interval", r.opts.interval))
}

// StopReporting cancels the subscription and clears the flag. It is safe to
// call in any state, any number of times.
func (r *reporter[R]) StopReporting() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen.Add(1)
	if r.source != nil {
		r.source.StopUpdates()
	}
	if r.IsReporting() {
		r.opts.logger.Info("reporting stopped")
	}
	r.setReporting(false)
}

func (r *reporter[R]) deliver(gen uint64, reading *R, err error) {
	// Deliveries from a cancelled subscription are dropped.
	if gen != r.gen.Load() {
		return
	}
	if err != nil {
		r.opts.logger.Warn("hardware delivery error", zap.Error(err))
		if r.opts.observer != nil {
			r.opts.observer.DeliveryFailed(r.typ, err)
		}
	}
	if reading == nil {
		if r.opts.observer != nil {
			r.opts.observer.ReadingDropped(r.typ)
		}
		return
	}
	r.emit(r.normalize(reading))
}
