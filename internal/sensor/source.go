package sensor

import (
	"time"

	"github.com/golang/geo/r3"
)

// Sink is the append-only destination for Records. It is shared by all
// sensors, so AddLine must be safe for concurrent use and must append each
// record atomically.
type Sink interface {
	AddLine(rec Record)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(rec Record)

// AddLine calls f(rec).
func (f SinkFunc) AddLine(rec Record) { f(rec) }

// Handler receives one delivery from a hardware source. Either argument may
// be nil; a nil reading carries no data.
type Handler[R any] func(reading *R, err error)

// Source is one hardware capability that produces readings of type R.
// StartUpdates must not block; the source calls the handler on its own
// goroutine, one delivery at a time, in hardware order.
type Source[R any] interface {
	Available() bool
	SetUpdateInterval(d time.Duration)
	StartUpdates(h Handler[R])
	StopUpdates()
}

// AccelerometerData is one accelerometer reading, in g.
type AccelerometerData struct {
	Acceleration r3.Vector
}

// GyroData is one gyroscope reading, in rad/s.
type GyroData struct {
	RotationRate r3.Vector
}

// MagnetometerData is one magnetometer reading, in µT.
type MagnetometerData struct {
	MagneticField r3.Vector
}

// AltitudeData is one altimeter reading: metres relative to the first
// reading of the subscription, and pressure in kPa.
type AltitudeData struct {
	RelativeAltitude float64
	Pressure         float64
}

// TemperatureData is one thermometer reading, in °C.
type TemperatureData struct {
	Celsius float64
}

// MotionManager is a single motion hardware handle shared by several
// sensors. Each accessor returns a disjoint sub-API, or nil when the
// hardware does not have it.
type MotionManager interface {
	Accelerometer() Source[AccelerometerData]
	Gyro() Source[GyroData]
	Magnetometer() Source[MagnetometerData]
}
