// Package capture coordinates a set of sensors writing into one sink.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/sensor"
)

// Status is a point-in-time view of one sensor.
type Status struct {
	Type      string `json:"type"`
	Available bool   `json:"available"`
	Reporting bool   `json:"reporting"`
}

// Session is an ordered collection of sensors with at most one sensor per
// type. The sensors themselves are safe for concurrent use; the session
// only guards its own list.
type Session struct {
	ID      string
	Started time.Time

	logger *zap.Logger
	clock  clock.Clock

	mu      sync.RWMutex
	sensors []sensor.Sensor
}

// NewSession returns an empty session with a fresh ID.
func NewSession(logger *zap.Logger, clk clock.Clock) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}
	id := uuid.NewString()
	return &Session{
		ID:     id,
		logger: logger.With(zap.String("session", id)),
		clock:  clk,
	}
}

// Add appends sensors. A sensor whose type is already present replaces the
// earlier one, which is stopped first.
func (s *Session) Add(sensors ...sensor.Sensor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sn := range sensors {
		if sn == nil {
			continue
		}
		replaced := false
		for i, have := range s.sensors {
			if have.Type() == sn.Type() {
				have.StopReporting()
				s.sensors[i] = sn
				replaced = true
				break
			}
		}
		if !replaced {
			s.sensors = append(s.sensors, sn)
		}
	}
}

// Sensors returns the sensors in insertion order.
func (s *Session) Sensors() []sensor.Sensor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]sensor.Sensor, len(s.sensors))
	copy(out, s.sensors)
	return out
}

// Lookup returns the sensor of the given type.
func (s *Session) Lookup(t sensor.Type) (sensor.Sensor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sn := range s.sensors {
		if sn.Type() == t {
			return sn, true
		}
	}
	return nil, false
}

// StartAll starts every sensor and returns how many are reporting
// afterwards. Unavailable sensors stay idle.
func (s *Session) StartAll() int {
	n := 0
	for _, sn := range s.Sensors() {
		sn.StartReporting()
		if sn.IsReporting() {
			n++
		}
	}
	s.mu.Lock()
	if s.Started.IsZero() {
		s.Started = s.clock.Now()
	}
	s.mu.Unlock()
	s.logger.Info("sensors started", zap.Int("reporting", n), zap.Int("total", len(s.Sensors())))
	return n
}

// StopAll stops every sensor.
func (s *Session) StopAll() {
	for _, sn := range s.Sensors() {
		sn.StopReporting()
	}
	s.logger.Info("sensors stopped")
}

// Status reports every sensor in insertion order.
func (s *Session) Status() []Status {
	sensors := s.Sensors()
	out := make([]Status, len(sensors))
	for i, sn := range sensors {
		out[i] = Status{
			Type:      sn.Type().String(),
			Available: sn.IsAvailable(),
			Reporting: sn.IsReporting(),
		}
	}
	return out
}

// Run starts every sensor, waits for ctx to be cancelled and stops them
// again. No subscription outlives Run.
func (s *Session) Run(ctx context.Context) error {
	s.StartAll()
	defer s.StopAll()
	<-ctx.Done()
	return nil
}
