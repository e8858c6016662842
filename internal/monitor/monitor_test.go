package monitor

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/sensorapp/internal/capture"
	"github.com/luki/sensorapp/internal/hardware/fake"
	"github.com/luki/sensorapp/internal/sensor"
)

func setup(t *testing.T) (Model, *fake.Source[sensor.AltitudeData]) {
	t.Helper()
	alt := fake.NewSource[sensor.AltitudeData](true)
	feed := NewFeed(8)
	session := capture.NewSession(nil, nil)
	session.Add(
		sensor.NewAccelerometer(fake.NewMotionManager(false), feed),
		sensor.NewBarometer(alt, feed),
	)
	return New(session, feed, "/tmp/data"), alt
}

func press(m Model, key string) Model {
	var msg tea.KeyMsg
	if key == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	} else {
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestSpaceTogglesSelectedSensor(t *testing.T) {
	m, alt := setup(t)

	m = press(m, "j")
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	m = press(m, "j")
	if m.selected != 1 {
		t.Fatalf("selection should stop at the last sensor, got %d", m.selected)
	}

	m = press(m, " ")
	if !alt.Subscribed() || !m.status[1].Reporting {
		t.Fatal("space should start the barometer")
	}
	m = press(m, " ")
	if alt.Subscribed() || m.status[1].Reporting {
		t.Fatal("second space should stop the barometer")
	}

	m = press(m, "k")
	m = press(m, " ")
	if m.status[0].Reporting {
		t.Error("unavailable accelerometer must stay idle")
	}
}

func TestRecordsFeedHistory(t *testing.T) {
	m, alt := setup(t)
	m = press(m, "j")
	m = press(m, " ")

	alt.Tick(&sensor.AltitudeData{RelativeAltitude: 1.5, Pressure: 100.2}, nil)
	alt.Tick(&sensor.AltitudeData{RelativeAltitude: 2.5, Pressure: 100.1}, nil)

	next, cmd := m.Update(recordsMsg(m.feed.drain(drainBatch)))
	m = next.(Model)
	if cmd == nil {
		t.Error("expected a follow-up wait command")
	}
	if m.counts[sensor.Barometer] != 2 {
		t.Errorf("count = %d, want 2", m.counts[sensor.Barometer])
	}
	if got := m.history.Get("Barometer/relativeAltitude").Last(); got != 2.5 {
		t.Errorf("last altitude = %v", got)
	}

	m = press(m, "p")
	alt.Tick(&sensor.AltitudeData{RelativeAltitude: 3.5, Pressure: 100}, nil)
	next, _ = m.Update(recordsMsg(m.feed.drain(drainBatch)))
	m = next.(Model)
	if m.counts[sensor.Barometer] != 2 {
		t.Error("paused monitor should not take records")
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 160, Height: 60})
	view := next.(Model).View()
	for _, want := range []string{"SENSOR MONITOR", "Barometer", "REPORTING", "UNAVAILABLE", "PAUSED", "relativeAltitude (m)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view is missing %q", want)
		}
	}
}

func TestFeedDropsWhenFull(t *testing.T) {
	f := NewFeed(2)
	rec := sensor.Record{Type: sensor.Thermometer, Data: sensor.Temperature{}}
	for i := 0; i < 5; i++ {
		f.AddLine(rec)
	}
	if f.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", f.Dropped())
	}
	if got := len(f.drain(10)); got != 2 {
		t.Errorf("drain = %d records, want 2", got)
	}
}

func TestFmtDuration(t *testing.T) {
	if got := fmtDuration(75 * time.Second); got != "1m15s" {
		t.Errorf("fmtDuration = %q", got)
	}
	if got := fmtDuration(3723 * time.Second); got != "1h02m03s" {
		t.Errorf("fmtDuration = %q", got)
	}
}
