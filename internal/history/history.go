// Package history provides a ring-buffer based value history tracker with
// per-series min/peak/avg statistics. A series is one field of one sensor
// type, e.g. "Accelerometer/z".
package history

import (
	"math"
	"sort"
	"time"

	"github.com/luki/sensorapp/internal/sensor"
)

// Point is a single data point in a series.
type Point struct {
	Value float64
	Time  time.Time
}

// Buffer stores a ring buffer of values for one series.
type Buffer struct {
	Points []Point
	Max    int // capacity
	Min    float64
	Peak   float64
}

// NewBuffer creates a new history ring buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

// Push adds a new value to the history.
func (b *Buffer) Push(v float64, t time.Time) {
	p := Point{Value: v, Time: t}
	if len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
	} else {
		b.Points = append(b.Points, p)
	}

	if v < b.Min {
		b.Min = v
	}
	if v > b.Peak {
		b.Peak = v
	}
}

// Last returns the most recent value, or 0 if empty.
func (b *Buffer) Last() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	return b.Points[len(b.Points)-1].Value
}

// Avg returns the average across all stored points.
func (b *Buffer) Avg() float64 {
	if len(b.Points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range b.Points {
		sum += p.Value
	}
	return sum / float64(len(b.Points))
}

// Range returns the lowest and highest stored value, widened so the span
// is never zero. An empty buffer yields 0, 1.
func (b *Buffer) Range() (lo, hi float64) {
	if len(b.Points) == 0 {
		return 0, 1
	}
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, p := range b.Points {
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.01, 0.5)
	}
	return lo - pad, hi + pad
}

// LastN returns the last n values (for chart rendering).
func (b *Buffer) LastN(n int) []float64 {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	vals := make([]float64, 0, n)
	for _, p := range b.Points[start:] {
		vals = append(vals, p.Value)
	}
	return vals
}

// LastNPoints returns the last n Points (with timestamps).
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}

// Key names the series of one field of a sensor type.
func Key(t sensor.Type, field string) string {
	return t.String() + "/" + field
}

// Store manages histories for all series.
type Store struct {
	Data     map[string]*Buffer
	Capacity int
}

// NewStore creates a new store with the given per-series capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[string]*Buffer),
		Capacity: capacity,
	}
}

// Record adds a value for the given series key.
func (s *Store) Record(key string, v float64, t time.Time) {
	b, ok := s.Data[key]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[key] = b
	}
	b.Push(v, t)
}

// Add records every field of a sensor record.
func (s *Store) Add(rec sensor.Record) {
	for _, f := range rec.Fields() {
		s.Record(Key(rec.Type, f.Name), f.Value, rec.Time)
	}
}

// Get returns the history buffer for a series key, or nil.
func (s *Store) Get(key string) *Buffer {
	return s.Data[key]
}

// Keys returns all series keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.Data))
	for k := range s.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
