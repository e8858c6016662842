// Package sensor defines the uniform reporting lifecycle shared by every
// on-device instrument and the record stream those instruments feed.
//
// A concrete sensor adapts one hardware source into Records. The hardware
// delivers readings asynchronously; each non-empty reading is normalized
// into a Record and appended to the shared Sink.
package sensor

import (
	"fmt"
	"strings"
)

// Type identifies the physical phenomenon a sensor measures.
type Type int

const (
	Accelerometer Type = iota + 1
	Barometer
	Gyroscope
	Magnetometer
	Thermometer
)

var typeNames = map[Type]string{
	Accelerometer: "Accelerometer",
	Barometer:     "Barometer",
	Gyroscope:     "Gyroscope",
	Magnetometer:  "Magnetometer",
	Thermometer:   "Thermometer",
}

// Types returns every known sensor type in display order.
func Types() []Type {
	return []Type{Accelerometer, Barometer, Gyroscope, Magnetometer, Thermometer}
}

// String returns the display name written into the "type" field of a Record.
func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Valid reports whether t is a known sensor type.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// ParseType resolves a display name (case-insensitive) to a Type.
func ParseType(s string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor type %q", s)
}
