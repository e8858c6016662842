package sensor

// BarometerSensor reports relative altitude and pressure from the altimeter.
// The altimeter delivers readings as they change, so no interval is set
// unless one is configured with WithInterval.
type BarometerSensor struct {
	*reporter[AltitudeData]
}

// NewBarometer wires a barometer to its altimeter source and the sink.
func NewBarometer(altimeter Source[AltitudeData], sink Sink, opts ...Option) *BarometerSensor {
	return &BarometerSensor{
		reporter: newReporter(Barometer, altimeter, sink, 0, normalizeAltitude, opts),
	}
}

func normalizeAltitude(d *AltitudeData) Payload {
	return Altitude{RelativeAltitude: d.RelativeAltitude, Pressure: d.Pressure}
}
