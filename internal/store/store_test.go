package store

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/luki/sensorapp/internal/sensor"
)

func record(t sensor.Type, at time.Time, data sensor.Payload) sensor.Record {
	return sensor.Record{Type: t, Date: at.Format(sensor.DateLayout), Time: at, Data: data}
}

func TestDiskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ds, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ds.Close()

	now := time.Date(2026, 2, 21, 14, 30, 0, 0, time.UTC)
	ds.AddLine(record(sensor.Accelerometer, now, sensor.Axes{X: 0.1, Y: -0.2, Z: 9.8}))
	ds.AddLine(record(sensor.Barometer, now.Add(time.Second), sensor.Altitude{RelativeAltitude: 12.3, Pressure: 101.3}))
	ds.Close()

	loaded, err := LoadFile(filepath.Join(dir, "2026-02-21.jsonl"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 records, got %d", len(loaded))
	}
	if loaded[0].Type != sensor.Accelerometer || loaded[0].Data != (sensor.Axes{X: 0.1, Y: -0.2, Z: 9.8}) {
		t.Errorf("first record: got %+v", loaded[0])
	}
	if p, _ := loaded[1].Value("pressure"); p != 101.3 {
		t.Errorf("second record pressure: got %v", p)
	}
	if !loaded[1].Time.Equal(now.Add(time.Second)) {
		t.Errorf("second record time: got %v", loaded[1].Time)
	}
	if ds.Lines() != 2 {
		t.Errorf("Lines() = %d", ds.Lines())
	}
}

func TestDiskStoreRotatesDaily(t *testing.T) {
	dir := t.TempDir()
	ds, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	day1 := time.Date(2026, 2, 21, 23, 59, 59, 0, time.UTC)
	ds.AddLine(record(sensor.Thermometer, day1, sensor.Temperature{Celsius: 40}))
	ds.AddLine(record(sensor.Thermometer, day1.Add(2*time.Second), sensor.Temperature{Celsius: 41}))
	ds.AddLine(record(sensor.Thermometer, day1.Add(3*time.Second), sensor.Temperature{Celsius: 42}))

	days, err := ListDays(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || days[0] != "2026-02-22" || days[1] != "2026-02-21" {
		t.Fatalf("ListDays: got %v", days)
	}

	recs, err := LoadDay(dir, "2026-02-22")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("expected 2 records on second day, got %d", len(recs))
	}
}

func TestDiskStoreUsesClockForUntimedRecords(t *testing.T) {
	dir := t.TempDir()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	ds, err := New(dir, WithClock(clk))
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()

	ds.AddLine(sensor.Record{Type: sensor.Thermometer, Date: "now", Data: sensor.Temperature{Celsius: 20}})
	if _, err := os.Stat(filepath.Join(dir, "2026-05-01.jsonl")); err != nil {
		t.Fatalf("expected file for mock date: %v", err)
	}
}

func TestDiskStoreConcurrentLinesStayWhole(t *testing.T) {
	dir := t.TempDir()
	ds, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 2, 21, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ds.AddLine(record(sensor.Gyroscope, now, sensor.Axes{X: float64(g), Y: float64(i)}))
			}
		}(g)
	}
	wg.Wait()
	ds.Close()

	recs, err := LoadDay(dir, "2026-02-21")
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 200 {
		t.Errorf("expected 200 records, got %d", len(recs))
	}
}

func TestLoadFileSkipsTornLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2026-02-21.jsonl")
	data := `{"type":"Thermometer","date":"2026-02-21T10:00:00.000Z","temperature":40}
{"type":"Thermometer","date":"2026-02-21T10:00:01.000Z","tempera`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("expected 1 record, got %d", len(recs))
	}
}

func TestNonFiniteRecordIsRejected(t *testing.T) {
	ds, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer ds.Close()
	nan := record(sensor.Thermometer, time.Now(), sensor.Temperature{Celsius: math.NaN()})
	if err := ds.Write(context.Background(), nan); err == nil {
		t.Error("expected error for NaN")
	}
}
