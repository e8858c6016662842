package sensor

import "time"

// GyroscopeInterval is the default gyroscope sampling period.
const GyroscopeInterval = 100 * time.Millisecond

// GyroscopeSensor reports the rotation rate from the motion manager's gyro.
type GyroscopeSensor struct {
	*reporter[GyroData]
}

// NewGyroscope wires a gyroscope to the shared motion manager and sink.
func NewGyroscope(motion MotionManager, sink Sink, opts ...Option) *GyroscopeSensor {
	var src Source[GyroData]
	if motion != nil {
		src = motion.Gyro()
	}
	return &GyroscopeSensor{
		reporter: newReporter(Gyroscope, src, sink, GyroscopeInterval, normalizeRotation, opts),
	}
}

func normalizeRotation(d *GyroData) Payload {
	return Axes{X: d.RotationRate.X, Y: d.RotationRate.Y, Z: d.RotationRate.Z}
}
