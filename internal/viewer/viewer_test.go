package viewer

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/sensorapp/internal/sensor"
	"github.com/luki/sensorapp/internal/store"
)

func writeDay(t *testing.T, dir string, start time.Time) {
	t.Helper()
	ds, err := store.New(dir)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer ds.Close()

	for i := 0; i < 5; i++ {
		at := start.Add(time.Duration(i) * time.Second)
		ds.AddLine(sensor.Record{Type: sensor.Accelerometer, Date: at.Format(sensor.DateLayout), Time: at,
			Data: sensor.Axes{X: float64(i), Y: 0, Z: 1}})
		ds.AddLine(sensor.Record{Type: sensor.Thermometer, Date: at.Format(sensor.DateLayout), Time: at,
			Data: sensor.Temperature{Celsius: 20 + float64(i)}})
	}
}

func newModel(t *testing.T) model {
	t.Helper()
	dir := t.TempDir()
	writeDay(t, dir, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	writeDay(t, dir, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	days, err := store.ListDays(dir)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	return initModel(dir, days)
}

func key(m model, k string) model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(model)
}

func TestLoadDayBuildsSeries(t *testing.T) {
	m := newModel(t)

	if m.days[m.dayIdx] != "2026-03-02" {
		t.Fatalf("initial day = %s, want newest", m.days[m.dayIdx])
	}
	if len(m.records) != 10 {
		t.Fatalf("records = %d, want 10", len(m.records))
	}
	if len(m.timeSlots) != 5 {
		t.Fatalf("time slots = %d, want 5", len(m.timeSlots))
	}
	want := []string{"Accelerometer/x", "Accelerometer/y", "Accelerometer/z", "Thermometer/temperature"}
	if strings.Join(m.series, ",") != strings.Join(want, ",") {
		t.Fatalf("series = %v, want %v", m.series, want)
	}
	if m.cursor != 4 {
		t.Fatalf("cursor = %d, want last slot", m.cursor)
	}
}

func TestScrubAndDayNavigation(t *testing.T) {
	m := newModel(t)

	m = key(m, "h")
	if m.cursor != 3 {
		t.Fatalf("cursor after h = %d, want 3", m.cursor)
	}
	m = key(m, "H")
	if m.cursor != 0 {
		t.Fatalf("cursor after H = %d, want 0", m.cursor)
	}
	m = key(m, "l")
	if m.cursor != 1 {
		t.Fatalf("cursor after l = %d, want 1", m.cursor)
	}

	m = key(m, "[")
	if m.days[m.dayIdx] != "2026-03-01" {
		t.Fatalf("day after [ = %s", m.days[m.dayIdx])
	}
	if m.cursor != 4 {
		t.Fatal("loading a day should move the cursor to its last slot")
	}
	m = key(m, "[")
	if m.days[m.dayIdx] != "2026-03-01" {
		t.Fatal("[ should stop at the oldest day")
	}
	m = key(m, "]")
	if m.days[m.dayIdx] != "2026-03-02" {
		t.Fatalf("day after ] = %s", m.days[m.dayIdx])
	}
}

func TestFindValueAtTime(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	pts := []dataPoint{
		{time: base, value: 1},
		{time: base.Add(2 * time.Second), value: 2},
		{time: base.Add(4 * time.Second), value: 3},
	}
	if v := findValueAtTime(pts, base.Add(1900*time.Millisecond)); v != 2 {
		t.Fatalf("value = %v, want 2", v)
	}
	if v := findValueAtTime(pts, base.Add(time.Hour)); v != 3 {
		t.Fatalf("value = %v, want 3", v)
	}
}

func TestBuildSparkWindowEndsAtCursor(t *testing.T) {
	m := newModel(t)
	pts := buildSparkWindow(m.points["Thermometer/temperature"], 2, 10, m.timeSlots)
	if len(pts) != 3 {
		t.Fatalf("window = %d points, want 3", len(pts))
	}
	if pts[len(pts)-1].Value != 22 {
		t.Fatalf("last value = %v, want 22", pts[len(pts)-1].Value)
	}
}

func TestViewRendersPanels(t *testing.T) {
	m := newModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 80})
	m = next.(model)

	out := m.View()
	for _, want := range []string{"SENSOR HISTORY", "Accelerometer", "Thermometer", "temperature (°C)", "2026-03-02"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
