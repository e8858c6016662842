package history

import (
	"testing"
	"time"

	"github.com/luki/sensorapp/internal/sensor"
)

func TestHistory(t *testing.T) {
	h := NewBuffer(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		h.Push(float64(30+i), now.Add(time.Duration(i)*time.Second))
	}

	if len(h.Points) != 5 {
		t.Errorf("expected 5 points, got %d", len(h.Points))
	}

	if h.Last() != 36.0 {
		t.Errorf("Last(): got %f, want 36.0", h.Last())
	}

	if h.Min != 30.0 {
		t.Errorf("Min: got %f, want 30.0", h.Min)
	}

	if h.Peak != 36.0 {
		t.Errorf("Peak: got %f, want 36.0", h.Peak)
	}

	if h.Avg() != 34.0 {
		t.Errorf("Avg(): got %f, want 34.0", h.Avg())
	}

	vals := h.LastN(3)
	if len(vals) != 3 {
		t.Errorf("LastN(3): got %d values, want 3", len(vals))
	}
}

func TestLastNPoints(t *testing.T) {
	h := NewBuffer(100)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 0; i < 120; i++ {
		h.Push(float64(30+i%10), base.Add(time.Duration(i)*time.Second))
	}

	pts := h.LastNPoints(5)
	if len(pts) != 5 {
		t.Fatalf("LastNPoints(5): got %d, want 5", len(pts))
	}

	for _, p := range pts {
		if p.Time.IsZero() {
			t.Error("expected non-zero timestamp")
		}
	}

	last := pts[len(pts)-1]
	if last.Time != base.Add(119*time.Second) {
		t.Errorf("last point time: got %v, want %v", last.Time, base.Add(119*time.Second))
	}
}

func TestRange(t *testing.T) {
	h := NewBuffer(10)
	if lo, hi := h.Range(); lo != 0 || hi != 1 {
		t.Errorf("empty Range() = %v, %v", lo, hi)
	}

	h.Push(-1, time.Time{})
	h.Push(1, time.Time{})
	lo, hi := h.Range()
	if lo >= -1 || hi <= 1 {
		t.Errorf("Range() should pad the extremes, got %v, %v", lo, hi)
	}

	flat := NewBuffer(10)
	flat.Push(9.8, time.Time{})
	lo, hi = flat.Range()
	if hi-lo <= 0 {
		t.Errorf("flat Range() has zero span: %v, %v", lo, hi)
	}
}

func TestStoreAddSplitsFields(t *testing.T) {
	s := NewStore(10)
	at := time.Date(2026, 2, 21, 14, 0, 0, 0, time.UTC)
	s.Add(sensor.Record{Type: sensor.Accelerometer, Time: at, Data: sensor.Axes{X: 0.1, Y: -0.2, Z: 9.8}})
	s.Add(sensor.Record{Type: sensor.Barometer, Time: at, Data: sensor.Altitude{RelativeAltitude: 1, Pressure: 100}})

	want := []string{"Accelerometer/x", "Accelerometer/y", "Accelerometer/z", "Barometer/pressure", "Barometer/relativeAltitude"}
	keys := s.Keys()
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	if got := s.Get(Key(sensor.Accelerometer, "z")).Last(); got != 9.8 {
		t.Errorf("z = %v", got)
	}
	if s.Get("Thermometer/temperature") != nil {
		t.Error("unexpected series")
	}
}
