// Package hardware holds the building blocks shared by the hardware
// backends: a generic periodic poller and pressure helpers.
package hardware

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/luki/sensorapp/internal/sensor"
)

// DefaultPollInterval is used until a sensor sets its own interval.
const DefaultPollInterval = 100 * time.Millisecond

// ReadFunc samples the hardware once.
type ReadFunc[R any] func() (*R, error)

// Poller turns a synchronous read function into a sensor.Source by calling
// it on every clock tick. There is at most one subscription; deliveries
// happen on the poll goroutine, one at a time.
type Poller[R any] struct {
	read      ReadFunc[R]
	available func() bool
	clock     clock.Clock

	// OnStart, when set, runs before the first tick of every subscription.
	OnStart func()

	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller returns a poller. A nil available func means always available.
func NewPoller[R any](clk clock.Clock, read ReadFunc[R], available func() bool) *Poller[R] {
	if clk == nil {
		clk = clock.New()
	}
	return &Poller[R]{
		read:      read,
		available: available,
		clock:     clk,
		interval:  DefaultPollInterval,
	}
}

// Available implements sensor.Source.
func (p *Poller[R]) Available() bool {
	return p.available == nil || p.available()
}

// SetUpdateInterval implements sensor.Source. It takes effect on the next
// subscription; non-positive values are ignored.
func (p *Poller[R]) SetUpdateInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

// Interval returns the current polling period.
func (p *Poller[R]) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// StartUpdates implements sensor.Source. A previous subscription is
// replaced.
func (p *Poller[R]) StartUpdates(h sensor.Handler[R]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	if p.OnStart != nil {
		p.OnStart()
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	p.stop, p.done = stop, done
	ticker := p.clock.Ticker(p.interval)

	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				reading, err := p.read()
				select {
				case <-stop:
					return
				default:
				}
				h(reading, err)
			}
		}
	}()
}

// StopUpdates implements sensor.Source. It returns once the poll goroutine
// has exited, so no delivery happens afterwards.
func (p *Poller[R]) StopUpdates() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Poller[R]) stopLocked() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}

// Running reports whether a subscription is active.
func (p *Poller[R]) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// AltitudeFromPressure returns the height in metres of pressure p above the
// reference pressure p0, using the international barometric formula.
func AltitudeFromPressure(p, p0 float64) float64 {
	if p <= 0 || p0 <= 0 {
		return 0
	}
	return 44330 * (1 - math.Pow(p/p0, 1/5.255))
}

// AltitudeTracker converts absolute pressure into altimeter readings
// relative to the first pressure seen since the last Reset.
type AltitudeTracker struct {
	mu   sync.Mutex
	base float64
	set  bool
}

// Reset forgets the reference pressure.
func (a *AltitudeTracker) Reset() {
	a.mu.Lock()
	a.base, a.set = 0, false
	a.mu.Unlock()
}

// Next converts a pressure in kPa.
func (a *AltitudeTracker) Next(pressure float64) *sensor.AltitudeData {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.set {
		a.base, a.set = pressure, true
	}
	return &sensor.AltitudeData{
		RelativeAltitude: AltitudeFromPressure(pressure, a.base),
		Pressure:         pressure,
	}
}
