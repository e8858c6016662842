// Package serialport reads a sensor board attached over a serial line.
//
// The board prints one reading per line:
//
//	accel,<x>,<y>,<z>   acceleration in g
//	gyro,<x>,<y>,<z>    rotation rate in rad/s
//	magn,<x>,<y>,<z>    magnetic field in µT
//	baro,<pressure>     pressure in kPa
//	temp,<celsius>      board temperature
//
// Blank lines and lines starting with '#' are ignored.
package serialport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/hardware"
	"github.com/luki/sensorapp/internal/sensor"
)

// DefaultBaud matches the usual Arduino sketch.
const DefaultBaud = 9600

// Frame is one parsed line.
type Frame struct {
	Kind   string
	Values []float64
}

var frameArity = map[string]int{
	"accel": 3,
	"gyro":  3,
	"magn":  3,
	"baro":  1,
	"temp":  1,
}

// ErrSkip is returned by ParseLine for lines that carry no reading.
var ErrSkip = errors.New("no reading on line")

// ParseLine parses one line of the board protocol.
func ParseLine(line string) (Frame, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Frame{}, ErrSkip
	}
	parts := strings.Split(line, ",")
	kind := strings.ToLower(strings.TrimSpace(parts[0]))
	arity, ok := frameArity[kind]
	if !ok {
		return Frame{}, fmt.Errorf("unknown frame kind %q", kind)
	}
	if len(parts)-1 != arity {
		return Frame{}, fmt.Errorf("%s frame wants %d values, got %d", kind, arity, len(parts)-1)
	}
	f := Frame{Kind: kind, Values: make([]float64, arity)}
	for i, p := range parts[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Frame{}, fmt.Errorf("%s frame value %d: %w", kind, i, err)
		}
		f.Values[i] = v
	}
	return f, nil
}

// Open opens the serial port and starts reading it.
func Open(name string, baud int, clk clock.Clock, logger *zap.Logger) (*Board, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return NewBoard(port, clk, logger), nil
}

// Board demultiplexes the line stream into one push source per kind. It
// implements sensor.MotionManager.
type Board struct {
	port   io.ReadCloser
	clock  clock.Clock
	logger *zap.Logger

	accel  *push[sensor.AccelerometerData]
	gyro   *push[sensor.GyroData]
	magnet *push[sensor.MagnetometerData]
	alt    *push[sensor.AltitudeData]
	thermo *push[sensor.TemperatureData]

	tracker hardware.AltitudeTracker

	open atomic.Bool
	done chan struct{}
	err  error
}

// NewBoard starts reading lines from port until it fails or is closed.
func NewBoard(port io.ReadCloser, clk clock.Clock, logger *zap.Logger) *Board {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Board{
		port:   port,
		clock:  clk,
		logger: logger.With(zap.String("component", "serialport")),
		done:   make(chan struct{}),
	}
	b.open.Store(true)
	b.accel = newPush[sensor.AccelerometerData](b)
	b.gyro = newPush[sensor.GyroData](b)
	b.magnet = newPush[sensor.MagnetometerData](b)
	b.alt = newPush[sensor.AltitudeData](b)
	b.alt.onStart = b.tracker.Reset
	b.thermo = newPush[sensor.TemperatureData](b)
	go b.readLoop()
	return b
}

// Accelerometer implements sensor.MotionManager.
func (b *Board) Accelerometer() sensor.Source[sensor.AccelerometerData] { return b.accel }

// Gyro implements sensor.MotionManager.
func (b *Board) Gyro() sensor.Source[sensor.GyroData] { return b.gyro }

// Magnetometer implements sensor.MotionManager.
func (b *Board) Magnetometer() sensor.Source[sensor.MagnetometerData] { return b.magnet }

// Altimeter returns the board barometer.
func (b *Board) Altimeter() sensor.Source[sensor.AltitudeData] { return b.alt }

// Thermometer returns the board thermometer.
func (b *Board) Thermometer() sensor.Source[sensor.TemperatureData] { return b.thermo }

// Close closes the port and waits for the reader to exit.
func (b *Board) Close() error {
	err := b.port.Close()
	<-b.done
	return err
}

// Err returns the error that ended the read loop, once it has ended.
func (b *Board) Err() error {
	select {
	case <-b.done:
		return b.err
	default:
		return nil
	}
}

func (b *Board) readLoop() {
	defer close(b.done)
	defer b.open.Store(false)

	scanner := bufio.NewScanner(b.port)
	for scanner.Scan() {
		frame, err := ParseLine(scanner.Text())
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			b.logger.Debug("bad serial line", zap.String("line", scanner.Text()), zap.Error(err))
			continue
		}
		b.dispatch(frame)
	}
	b.err = scanner.Err()
	if b.err != nil {
		b.logger.Warn("serial read failed", zap.Error(b.err))
	}
}

func (b *Board) dispatch(f Frame) {
	v := f.Values
	switch f.Kind {
	case "accel":
		b.accel.deliver(func() *sensor.AccelerometerData {
			return &sensor.AccelerometerData{Acceleration: r3.Vector{X: v[0], Y: v[1], Z: v[2]}}
		})
	case "gyro":
		b.gyro.deliver(func() *sensor.GyroData {
			return &sensor.GyroData{RotationRate: r3.Vector{X: v[0], Y: v[1], Z: v[2]}}
		})
	case "magn":
		b.magnet.deliver(func() *sensor.MagnetometerData {
			return &sensor.MagnetometerData{MagneticField: r3.Vector{X: v[0], Y: v[1], Z: v[2]}}
		})
	case "baro":
		b.alt.deliver(func() *sensor.AltitudeData { return b.tracker.Next(v[0]) })
	case "temp":
		b.thermo.deliver(func() *sensor.TemperatureData { return &sensor.TemperatureData{Celsius: v[0]} })
	}
}

// push is a source fed by the board's read loop. Readings arriving faster
// than the update interval are skipped.
type push[R any] struct {
	board   *Board
	onStart func()

	mu       sync.Mutex
	interval time.Duration
	handler  sensor.Handler[R]
	last     time.Time
}

func newPush[R any](b *Board) *push[R] {
	return &push[R]{board: b}
}

func (p *push[R]) Available() bool { return p.board.open.Load() }

func (p *push[R]) SetUpdateInterval(d time.Duration) {
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
}

func (p *push[R]) StartUpdates(h sensor.Handler[R]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.onStart != nil {
		p.onStart()
	}
	p.handler = h
	p.last = time.Time{}
}

func (p *push[R]) StopUpdates() {
	p.mu.Lock()
	p.handler = nil
	p.mu.Unlock()
}

// deliver runs on the read loop. The reading is only built when someone
// is subscribed and the interval has elapsed.
func (p *push[R]) deliver(build func() *R) {
	p.mu.Lock()
	h := p.handler
	now := p.board.clock.Now()
	if h == nil || (!p.last.IsZero() && now.Sub(p.last) < p.interval) {
		p.mu.Unlock()
		return
	}
	p.last = now
	p.mu.Unlock()
	h(build(), nil)
}
