package sensor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// DateLayout is the default layout of the "date" field.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// Field is one sensor-specific numeric value of a Record.
type Field struct {
	Name  string
	Value float64
}

// Payload is the sensor-specific part of a Record. Each Type has
// exactly one payload shape, so a Record is never partially populated.
type Payload interface {
	Fields() []Field
}

// Axes is the payload of the three-axis motion sensors.
type Axes struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Fields returns x, y, z in that order.
func (a Axes) Fields() []Field {
	return []Field{{"x", a.X}, {"y", a.Y}, {"z", a.Z}}
}

// Altitude is the barometer payload.
type Altitude struct {
	RelativeAltitude float64 `json:"relativeAltitude"`
	Pressure         float64 `json:"pressure"`
}

// Fields returns relativeAltitude then pressure.
func (a Altitude) Fields() []Field {
	return []Field{{"relativeAltitude", a.RelativeAltitude}, {"pressure", a.Pressure}}
}

// Temperature is the thermometer payload.
type Temperature struct {
	Celsius float64 `json:"temperature"`
}

// Fields returns the single temperature field.
func (t Temperature) Fields() []Field {
	return []Field{{"temperature", t.Celsius}}
}

// Record is the normalized, sink-ready form of one reading.
type Record struct {
	Type Type
	Date string
	Time time.Time
	Data Payload
}

// Fields returns the sensor-specific fields, or nil for an empty record.
func (r Record) Fields() []Field {
	if r.Data == nil {
		return nil
	}
	return r.Data.Fields()
}

// Value looks up a sensor-specific field by name.
func (r Record) Value(name string) (float64, bool) {
	for _, f := range r.Fields() {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// Values flattens the record into a generic map keyed by field name.
func (r Record) Values() map[string]interface{} {
	m := map[string]interface{}{
		"type": r.Type.String(),
		"date": r.Date,
	}
	for _, f := range r.Fields() {
		m[f.Name] = f.Value
	}
	return m
}

var errNonFinite = errors.New("non-finite value cannot be encoded")

// MarshalJSON writes type, date and then the sensor fields, in that order.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Data == nil {
		return nil, fmt.Errorf("record %s has no data", r.Type)
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	writeString(&buf, r.Type.String())
	buf.WriteString(`,"date":`)
	writeString(&buf, r.Date)
	for _, f := range r.Data.Fields() {
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return nil, fmt.Errorf("%s.%s: %w", r.Type, f.Name, errNonFinite)
		}
		buf.WriteByte(',')
		writeString(&buf, f.Name)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(f.Value, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// UnmarshalJSON restores the typed payload from the "type" field. Time is
// parsed from the date using DateLayout; a date in another layout leaves
// Time zero.
func (r *Record) UnmarshalJSON(b []byte) error {
	var head struct {
		Type string `json:"type"`
		Date string `json:"date"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return err
	}
	t, err := ParseType(head.Type)
	if err != nil {
		return err
	}

	var data Payload
	switch t {
	case Accelerometer, Gyroscope, Magnetometer:
		var a Axes
		err = json.Unmarshal(b, &a)
		data = a
	case Barometer:
		var a Altitude
		err = json.Unmarshal(b, &a)
		data = a
	case Thermometer:
		var tc Temperature
		err = json.Unmarshal(b, &tc)
		data = tc
	}
	if err != nil {
		return fmt.Errorf("decode %s record: %w", t, err)
	}

	r.Type = t
	r.Date = head.Date
	r.Data = data
	r.Time, _ = time.Parse(DateLayout, head.Date)
	return nil
}
