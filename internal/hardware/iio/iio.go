// Package iio reads motion and pressure sensors exposed by the Linux
// Industrial I/O subsystem under /sys/bus/iio/devices.
package iio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"

	"github.com/luki/sensorapp/internal/hardware"
	"github.com/luki/sensorapp/internal/sensor"
)

// DefaultRoot is where the kernel publishes IIO devices.
const DefaultRoot = "/sys/bus/iio/devices"

const (
	standardGravity = 9.80665 // m/s² per g
	gaussToMicro    = 100     // µT per gauss
)

// Channel names as used in the sysfs attribute files.
const (
	ChannelAccel    = "accel"
	ChannelAnglVel  = "anglvel"
	ChannelMagn     = "magn"
	ChannelPressure = "pressure"
)

// Device is one iio:deviceN directory.
type Device struct {
	Dir  string
	Name string
}

// Discover lists the IIO devices under root, sorted by directory.
func Discover(root string) ([]Device, error) {
	matches, err := filepath.Glob(filepath.Join(root, "iio:device*"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	devices := make([]Device, 0, len(matches))
	for _, dir := range matches {
		name, _ := readString(filepath.Join(dir, "name"))
		devices = append(devices, Device{Dir: dir, Name: name})
	}
	return devices, nil
}

// Has reports whether the device exposes the channel.
func (d Device) Has(channel string) bool {
	if channel == ChannelPressure {
		return exists(filepath.Join(d.Dir, "in_pressure_input")) ||
			exists(filepath.Join(d.Dir, "in_pressure_raw"))
	}
	return exists(filepath.Join(d.Dir, "in_"+channel+"_x_raw"))
}

// Vector reads the x, y and z axes of a channel, scaled to the channel's
// IIO base unit.
func (d Device) Vector(channel string) (r3.Vector, error) {
	var v [3]float64
	for i, axis := range []string{"x", "y", "z"} {
		val, err := d.scaled(channel, axis)
		if err != nil {
			return r3.Vector{}, err
		}
		v[i] = val
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Pressure reads the pressure channel in kPa.
func (d Device) Pressure() (float64, error) {
	if v, err := readFloat(filepath.Join(d.Dir, "in_pressure_input")); err == nil {
		return v, nil
	}
	return d.scaled(ChannelPressure, "")
}

// scaled applies (raw + offset) * scale. Scale and offset may be shared by
// all axes or given per axis.
func (d Device) scaled(channel, axis string) (float64, error) {
	attr := "in_" + channel
	if axis != "" {
		attr += "_" + axis
	}
	raw, err := readFloat(filepath.Join(d.Dir, attr+"_raw"))
	if err != nil {
		return 0, err
	}
	scale := d.attr(attr+"_scale", "in_"+channel+"_scale", 1)
	offset := d.attr(attr+"_offset", "in_"+channel+"_offset", 0)
	return (raw + offset) * scale, nil
}

func (d Device) attr(specific, shared string, def float64) float64 {
	if v, err := readFloat(filepath.Join(d.Dir, specific)); err == nil {
		return v
	}
	if v, err := readFloat(filepath.Join(d.Dir, shared)); err == nil {
		return v
	}
	return def
}

// Board is a sensor.MotionManager plus altimeter backed by IIO. Every
// availability check and every read looks the device up again, so sensors
// that appear or vanish at runtime are picked up.
type Board struct {
	root string

	accel  *hardware.Poller[sensor.AccelerometerData]
	gyro   *hardware.Poller[sensor.GyroData]
	magnet *hardware.Poller[sensor.MagnetometerData]
	alt    *hardware.Poller[sensor.AltitudeData]

	tracker hardware.AltitudeTracker
}

// NewBoard returns a board rooted at root (DefaultRoot when empty).
func NewBoard(root string, clk clock.Clock) *Board {
	if root == "" {
		root = DefaultRoot
	}
	b := &Board{root: root}
	b.accel = hardware.NewPoller(clk, b.readAccel, b.available(ChannelAccel))
	b.gyro = hardware.NewPoller(clk, b.readGyro, b.available(ChannelAnglVel))
	b.magnet = hardware.NewPoller(clk, b.readMagnet, b.available(ChannelMagn))
	b.alt = hardware.NewPoller(clk, b.readAltitude, b.available(ChannelPressure))
	b.alt.OnStart = b.tracker.Reset
	return b
}

// Accelerometer implements sensor.MotionManager.
func (b *Board) Accelerometer() sensor.Source[sensor.AccelerometerData] { return b.accel }

// Gyro implements sensor.MotionManager.
func (b *Board) Gyro() sensor.Source[sensor.GyroData] { return b.gyro }

// Magnetometer implements sensor.MotionManager.
func (b *Board) Magnetometer() sensor.Source[sensor.MagnetometerData] { return b.magnet }

// Altimeter returns the pressure sensor as an altimeter.
func (b *Board) Altimeter() sensor.Source[sensor.AltitudeData] { return b.alt }

// Find returns the first device exposing the channel.
func (b *Board) Find(channel string) (Device, bool) {
	devices, err := Discover(b.root)
	if err != nil {
		return Device{}, false
	}
	for _, d := range devices {
		if d.Has(channel) {
			return d, true
		}
	}
	return Device{}, false
}

func (b *Board) available(channel string) func() bool {
	return func() bool {
		_, ok := b.Find(channel)
		return ok
	}
}

func (b *Board) vector(channel string) (r3.Vector, error) {
	d, ok := b.Find(channel)
	if !ok {
		return r3.Vector{}, fmt.Errorf("no iio device with %s channel under %s", channel, b.root)
	}
	return d.Vector(channel)
}

func (b *Board) readAccel() (*sensor.AccelerometerData, error) {
	v, err := b.vector(ChannelAccel)
	if err != nil {
		return nil, err
	}
	return &sensor.AccelerometerData{Acceleration: v.Mul(1 / standardGravity)}, nil
}

func (b *Board) readGyro() (*sensor.GyroData, error) {
	v, err := b.vector(ChannelAnglVel)
	if err != nil {
		return nil, err
	}
	return &sensor.GyroData{RotationRate: v}, nil
}

func (b *Board) readMagnet() (*sensor.MagnetometerData, error) {
	v, err := b.vector(ChannelMagn)
	if err != nil {
		return nil, err
	}
	return &sensor.MagnetometerData{MagneticField: v.Mul(gaussToMicro)}, nil
}

func (b *Board) readAltitude() (*sensor.AltitudeData, error) {
	d, ok := b.Find(ChannelPressure)
	if !ok {
		return nil, fmt.Errorf("no iio pressure device under %s", b.root)
	}
	p, err := d.Pressure()
	if err != nil {
		return nil, err
	}
	return b.tracker.Next(p), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func readString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func readFloat(path string) (float64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
