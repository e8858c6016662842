package sensor

// fieldUnits maps a sensor type to the unit of each of its fields.
var fieldUnits = map[Type]map[string]string{
	Accelerometer: {"x": "g", "y": "g", "z": "g"},
	Gyroscope:     {"x": "rad/s", "y": "rad/s", "z": "rad/s"},
	Magnetometer:  {"x": "µT", "y": "µT", "z": "µT"},
	Barometer:     {"relativeAltitude": "m", "pressure": "kPa"},
	Thermometer:   {"temperature": "°C"},
}

// Unit returns the unit of a record field, or "" when unknown.
func Unit(t Type, field string) string {
	return fieldUnits[t][field]
}

// FieldNames returns the field names a record of type t carries, in order.
func FieldNames(t Type) []string {
	var p Payload
	switch t {
	case Accelerometer, Gyroscope, Magnetometer:
		p = Axes{}
	case Barometer:
		p = Altitude{}
	case Thermometer:
		p = Temperature{}
	default:
		return nil
	}
	fields := p.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
