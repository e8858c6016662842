package fake

import (
	"sync"
	"testing"

	"github.com/luki/sensorapp/internal/sensor"
)

func TestCountsAreSafeToReadConcurrently(t *testing.T) {
	src := NewSource[sensor.TemperatureData](true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			src.StartUpdates(func(*sensor.TemperatureData, error) {})
			src.StopUpdates()
		}()
		go func() {
			defer wg.Done()
			_ = src.StartCount() + src.StopCount()
		}()
	}
	wg.Wait()

	if got := src.StartCount(); got != 8 {
		t.Fatalf("StartCount = %d, want 8", got)
	}
	if got := src.StopCount(); got != 8 {
		t.Fatalf("StopCount = %d, want 8", got)
	}
}
