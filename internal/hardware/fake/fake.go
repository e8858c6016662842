// Package fake provides hand-driven hardware sources. Tick delivers a
// reading synchronously on the caller's goroutine, which keeps tests
// deterministic.
package fake

import (
	"sync"
	"time"

	"github.com/luki/sensorapp/internal/sensor"
)

// Source is a manually ticked sensor.Source.
type Source[R any] struct {
	mu        sync.Mutex
	available bool
	interval  time.Duration
	handler   sensor.Handler[R]
	starts    int
	stops     int
}

// NewSource returns a source with the given availability.
func NewSource[R any](available bool) *Source[R] {
	return &Source[R]{available: available}
}

// Available implements sensor.Source. A nil source is unavailable.
func (s *Source[R]) Available() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.available
}

// SetAvailable flips the availability flag.
func (s *Source[R]) SetAvailable(v bool) {
	s.mu.Lock()
	s.available = v
	s.mu.Unlock()
}

// SetUpdateInterval implements sensor.Source.
func (s *Source[R]) SetUpdateInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

// Interval returns the last interval set.
func (s *Source[R]) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// StartUpdates implements sensor.Source.
func (s *Source[R]) StartUpdates(h sensor.Handler[R]) {
	s.mu.Lock()
	s.handler = h
	s.starts++
	s.mu.Unlock()
}

// StopUpdates implements sensor.Source.
func (s *Source[R]) StopUpdates() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.handler = nil
	s.stops++
	s.mu.Unlock()
}

// StartCount returns how many times StartUpdates was called.
func (s *Source[R]) StartCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// StopCount returns how many times StopUpdates was called.
func (s *Source[R]) StopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Subscribed reports whether a handler is registered.
func (s *Source[R]) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil
}

// Tick delivers one reading to the current subscriber, if any. It returns
// false when nobody is subscribed.
func (s *Source[R]) Tick(reading *R, err error) bool {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h == nil {
		return false
	}
	h(reading, err)
	return true
}

// Handler returns the current subscriber, for simulating a delivery that
// was already in flight when the subscription was cancelled.
func (s *Source[R]) Handler() sensor.Handler[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// MotionManager is a fake shared motion manager.
type MotionManager struct {
	Accel  *Source[sensor.AccelerometerData]
	Gyros  *Source[sensor.GyroData]
	Magnet *Source[sensor.MagnetometerData]
}

// NewMotionManager returns a manager whose three sub-APIs share the given
// availability.
func NewMotionManager(available bool) *MotionManager {
	return &MotionManager{
		Accel:  NewSource[sensor.AccelerometerData](available),
		Gyros:  NewSource[sensor.GyroData](available),
		Magnet: NewSource[sensor.MagnetometerData](available),
	}
}

// Accelerometer implements sensor.MotionManager.
func (m *MotionManager) Accelerometer() sensor.Source[sensor.AccelerometerData] {
	if m.Accel == nil {
		return nil
	}
	return m.Accel
}

// Gyro implements sensor.MotionManager.
func (m *MotionManager) Gyro() sensor.Source[sensor.GyroData] {
	if m.Gyros == nil {
		return nil
	}
	return m.Gyros
}

// Magnetometer implements sensor.MotionManager.
func (m *MotionManager) Magnetometer() sensor.Source[sensor.MagnetometerData] {
	if m.Magnet == nil {
		return nil
	}
	return m.Magnet
}
