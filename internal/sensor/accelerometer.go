package sensor

import "time"

// AccelerometerInterval is the default accelerometer sampling period.
const AccelerometerInterval = 100 * time.Millisecond

// AccelerometerSensor reports the device accelerometer. It shares the
// motion manager with the other motion sensors and only touches its
// accelerometer sub-API.
type AccelerometerSensor struct {
	*reporter[AccelerometerData]
}

// NewAccelerometer wires an accelerometer to the shared motion manager and
// sink. A nil manager yields a sensor that is never available.
func NewAccelerometer(motion MotionManager, sink Sink, opts ...Option) *AccelerometerSensor {
	var src Source[AccelerometerData]
	if motion != nil {
		src = motion.Accelerometer()
	}
	return &AccelerometerSensor{
		reporter: newReporter(Accelerometer, src, sink, AccelerometerInterval, normalizeAcceleration, opts),
	}
}

func normalizeAcceleration(d *AccelerometerData) Payload {
	return Axes{X: d.Acceleration.X, Y: d.Acceleration.Y, Z: d.Acceleration.Z}
}
