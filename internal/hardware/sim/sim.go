// Package sim simulates a device lying on a table that is slowly carried
// upstairs. It lets the whole pipeline run on machines without sensors.
package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"github.com/luki/sensorapp/internal/hardware"
	"github.com/luki/sensorapp/internal/sensor"
)

// SeaLevelPressure is the starting pressure of the simulated altimeter, in kPa.
const SeaLevelPressure = 101.325

// Device is a simulated board. All sources share one clock and noise
// generator.
type Device struct {
	clock clock.Clock
	start float64

	mu  sync.Mutex
	rng *rand.Rand

	accel  *hardware.Poller[sensor.AccelerometerData]
	gyro   *hardware.Poller[sensor.GyroData]
	magnet *hardware.Poller[sensor.MagnetometerData]
	alt    *hardware.Poller[sensor.AltitudeData]
	thermo *hardware.Poller[sensor.TemperatureData]

	tracker hardware.AltitudeTracker
}

// New returns a simulated device. The seed makes the noise reproducible.
func New(clk clock.Clock, seed int64) *Device {
	if clk == nil {
		clk = clock.New()
	}
	d := &Device{
		clock: clk,
		start: float64(clk.Now().UnixNano()) / 1e9,
		rng:   rand.New(rand.NewSource(seed)),
	}
	d.accel = hardware.NewPoller(clk, d.readAccel, nil)
	d.gyro = hardware.NewPoller(clk, d.readGyro, nil)
	d.magnet = hardware.NewPoller(clk, d.readMagnet, nil)
	d.alt = hardware.NewPoller(clk, d.readAltitude, nil)
	d.alt.SetUpdateInterval(500 * time.Millisecond)
	d.alt.OnStart = d.tracker.Reset
	d.thermo = hardware.NewPoller(clk, d.readTemperature, nil)
	return d
}

// Accelerometer implements sensor.MotionManager.
func (d *Device) Accelerometer() sensor.Source[sensor.AccelerometerData] { return d.accel }

// Gyro implements sensor.MotionManager.
func (d *Device) Gyro() sensor.Source[sensor.GyroData] { return d.gyro }

// Magnetometer implements sensor.MotionManager.
func (d *Device) Magnetometer() sensor.Source[sensor.MagnetometerData] { return d.magnet }

// Altimeter returns the simulated barometer.
func (d *Device) Altimeter() sensor.Source[sensor.AltitudeData] { return d.alt }

// Thermometer returns the simulated board thermometer.
func (d *Device) Thermometer() sensor.Source[sensor.TemperatureData] { return d.thermo }

func (d *Device) elapsed() float64 {
	return float64(d.clock.Now().UnixNano())/1e9 - d.start
}

func (d *Device) noise(scale float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return (d.rng.Float64()*2 - 1) * scale
}

func (d *Device) readAccel() (*sensor.AccelerometerData, error) {
	t := d.elapsed()
	return &sensor.AccelerometerData{Acceleration: r3.Vector{
		X: 0.02*math.Sin(t) + d.noise(0.005),
		Y: 0.02*math.Cos(t) + d.noise(0.005),
		Z: -1 + d.noise(0.005),
	}}, nil
}

func (d *Device) readGyro() (*sensor.GyroData, error) {
	t := d.elapsed()
	return &sensor.GyroData{RotationRate: r3.Vector{
		X: 0.01 * math.Cos(t),
		Y: -0.01 * math.Sin(t),
		Z: d.noise(0.002),
	}}, nil
}

func (d *Device) readMagnet() (*sensor.MagnetometerData, error) {
	t := d.elapsed() / 60
	field := r3.Vector{X: 22 * math.Cos(t), Y: 22 * math.Sin(t), Z: -42}
	return &sensor.MagnetometerData{MagneticField: field.Add(r3.Vector{
		X: d.noise(0.3), Y: d.noise(0.3), Z: d.noise(0.3),
	})}, nil
}

// readAltitude climbs roughly one metre every ten seconds.
func (d *Device) readAltitude() (*sensor.AltitudeData, error) {
	climb := d.elapsed() / 10
	p := SeaLevelPressure*math.Pow(1-climb/44330, 5.255) + d.noise(0.001)
	return d.tracker.Next(p), nil
}

func (d *Device) readTemperature() (*sensor.TemperatureData, error) {
	t := d.elapsed() / 120
	return &sensor.TemperatureData{Celsius: 38 + 4*math.Sin(t) + d.noise(0.2)}, nil
}
