package sensor

import "time"

// ThermometerInterval is the default thermometer sampling period.
const ThermometerInterval = time.Second

// ThermometerSensor reports a board temperature.
type ThermometerSensor struct {
	*reporter[TemperatureData]
}

// NewThermometer wires a thermometer to its source and the sink.
func NewThermometer(src Source[TemperatureData], sink Sink, opts ...Option) *ThermometerSensor {
	return &ThermometerSensor{
		reporter: newReporter(Thermometer, src, sink, ThermometerInterval, normalizeTemperature, opts),
	}
}

func normalizeTemperature(d *TemperatureData) Payload {
	return Temperature{Celsius: d.Celsius}
}
