package sensor

import "time"

// MagnetometerInterval is the default magnetometer sampling period.
const MagnetometerInterval = 100 * time.Millisecond

// MagnetometerSensor reports the magnetic field from the motion manager.
type MagnetometerSensor struct {
	*reporter[MagnetometerData]
}

// NewMagnetometer wires a magnetometer to the shared motion manager and sink.
func NewMagnetometer(motion MotionManager, sink Sink, opts ...Option) *MagnetometerSensor {
	var src Source[MagnetometerData]
	if motion != nil {
		src = motion.Magnetometer()
	}
	return &MagnetometerSensor{
		reporter: newReporter(Magnetometer, src, sink, MagnetometerInterval, normalizeField, opts),
	}
}

func normalizeField(d *MagnetometerData) Payload {
	return Axes{X: d.MagneticField.X, Y: d.MagneticField.Y, Z: d.MagneticField.Z}
}
