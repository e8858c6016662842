package sim

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/sensorapp/internal/sensor"
	"github.com/luki/sensorapp/internal/sink"
)

func TestDeviceFeedsSensors(t *testing.T) {
	clk := clock.NewMock()
	dev := New(clk, 1)
	mem := &sink.Memory{}

	accel := sensor.NewAccelerometer(dev, mem, sensor.WithClock(clk))
	require.True(t, accel.IsAvailable())
	accel.StartReporting()

	for i := 0; i < 3; i++ {
		want := i + 1
		clk.Add(sensor.AccelerometerInterval)
		require.Eventually(t, func() bool { return mem.Len() == want }, time.Second, time.Millisecond)
	}
	accel.StopReporting()

	for _, rec := range mem.Records() {
		z, ok := rec.Value("z")
		require.True(t, ok)
		assert.InDelta(t, -1, z, 0.01)
	}
}

func TestAltimeterStartsAtZero(t *testing.T) {
	clk := clock.NewMock()
	dev := New(clk, 1)

	r, err := dev.readAltitude()
	require.NoError(t, err)
	assert.Zero(t, r.RelativeAltitude)
	assert.InDelta(t, SeaLevelPressure, r.Pressure, 0.01)

	clk.Add(100 * time.Second)
	r, err = dev.readAltitude()
	require.NoError(t, err)
	assert.InDelta(t, 10, r.RelativeAltitude, 1)
}

func TestThermometerStaysInRange(t *testing.T) {
	dev := New(clock.NewMock(), 7)
	for i := 0; i < 20; i++ {
		r, err := dev.readTemperature()
		require.NoError(t, err)
		assert.InDelta(t, 38, r.Celsius, 5)
	}
}
