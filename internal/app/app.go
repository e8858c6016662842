// Package app assembles hardware, sensors and sinks from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luki/sensorapp/internal/capture"
	"github.com/luki/sensorapp/internal/config"
	"github.com/luki/sensorapp/internal/hardware/hwmon"
	"github.com/luki/sensorapp/internal/hardware/iio"
	"github.com/luki/sensorapp/internal/hardware/serialport"
	"github.com/luki/sensorapp/internal/hardware/sim"
	"github.com/luki/sensorapp/internal/metrics"
	"github.com/luki/sensorapp/internal/sensor"
	"github.com/luki/sensorapp/internal/server"
	"github.com/luki/sensorapp/internal/sink"
	"github.com/luki/sensorapp/internal/store"
)

// Hardware is the set of collaborators the sensors are built on. Any of
// them may be nil, which leaves the matching sensors unavailable.
type Hardware struct {
	Motion      sensor.MotionManager
	Altimeter   sensor.Source[sensor.AltitudeData]
	Thermometer sensor.Source[sensor.TemperatureData]
	Close       func() error
}

// App is a fully wired capture process.
type App struct {
	Config  config.Config
	Session *capture.Session
	Store   *store.DiskStore
	Hub     *server.Hub
	Metrics *metrics.Metrics

	logger  *zap.Logger
	queue   *sink.Queue
	closers []func() error
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	clock    clock.Clock
	hardware *Hardware
	sinks    []sensor.Sink
}

// WithClock replaces the wall clock for hardware polling and timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *buildOptions) { o.clock = c }
}

// WithHardware skips opening hardware from the config.
func WithHardware(hw Hardware) Option {
	return func(o *buildOptions) { o.hardware = &hw }
}

// WithSink adds a sink to the fan-out, e.g. the live monitor feed.
func WithSink(s sensor.Sink) Option {
	return func(o *buildOptions) { o.sinks = append(o.sinks, s) }
}

// Build opens hardware and sinks and creates one sensor per enabled type.
// Nothing is started. On error everything opened so far is closed again.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics, opts ...Option) (_ *App, err error) {
	o := buildOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		Config:  cfg,
		Metrics: m,
		Hub:     server.NewHub(logger),
		logger:  logger,
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, a.closeAll())
		}
	}()

	hw := o.hardware
	if hw == nil {
		opened, err := OpenHardware(cfg, o.clock, logger)
		if err != nil {
			return nil, err
		}
		hw = &opened
	}
	if hw.Close != nil {
		a.closers = append(a.closers, hw.Close)
	}

	a.Store, err = store.New(cfg.DataDir, store.WithClock(o.clock), store.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.Store.Close)

	fanout := sink.Tee{a.Store, a.Hub}
	fanout = append(fanout, o.sinks...)
	transports, err := a.openTransports(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fanout = append(fanout, transports...)

	var target sensor.Sink = fanout
	if cfg.QueueDepth > 0 {
		a.queue = sink.NewQueue(fanout, cfg.QueueDepth)
		target = a.queue
	}

	a.Session = capture.NewSession(logger, o.clock)
	for _, t := range cfg.Sensors {
		sensorOpts := []sensor.Option{
			sensor.WithLogger(logger),
			sensor.WithClock(o.clock),
			sensor.WithDateLayout(cfg.DateLayout),
			sensor.WithObserver(m),
		}
		if d := cfg.Interval(t); d > 0 {
			sensorOpts = append(sensorOpts, sensor.WithInterval(d))
		}
		a.Session.Add(NewSensor(t, *hw, target, sensorOpts...))
	}
	return a, nil
}

// NewSensor builds the sensor of type t on the given hardware.
func NewSensor(t sensor.Type, hw Hardware, s sensor.Sink, opts ...sensor.Option) sensor.Sensor {
	switch t {
	case sensor.Accelerometer:
		return sensor.NewAccelerometer(hw.Motion, s, opts...)
	case sensor.Gyroscope:
		return sensor.NewGyroscope(hw.Motion, s, opts...)
	case sensor.Magnetometer:
		return sensor.NewMagnetometer(hw.Motion, s, opts...)
	case sensor.Barometer:
		return sensor.NewBarometer(hw.Altimeter, s, opts...)
	case sensor.Thermometer:
		return sensor.NewThermometer(hw.Thermometer, s, opts...)
	default:
		return nil
	}
}

// OpenHardware opens the backend named by cfg.Source.
func OpenHardware(cfg config.Config, clk clock.Clock, logger *zap.Logger) (Hardware, error) {
	switch cfg.Source {
	case config.SourceSim:
		dev := sim.New(clk, cfg.SimSeed)
		return Hardware{Motion: dev, Altimeter: dev.Altimeter(), Thermometer: dev.Thermometer()}, nil
	case config.SourceIIO:
		board := iio.NewBoard(cfg.IIORoot, clk)
		return Hardware{
			Motion:      board,
			Altimeter:   board.Altimeter(),
			Thermometer: hwmon.NewThermometer(cfg.HwmonRoot, cfg.HwmonChip, clk),
		}, nil
	case config.SourceHwmon:
		return Hardware{Thermometer: hwmon.NewThermometer(cfg.HwmonRoot, cfg.HwmonChip, clk)}, nil
	case config.SourceSerial:
		board, err := serialport.Open(cfg.SerialPort, cfg.SerialBaud, clk, logger)
		if err != nil {
			return Hardware{}, err
		}
		return Hardware{
			Motion:      board,
			Altimeter:   board.Altimeter(),
			Thermometer: board.Thermometer(),
			Close:       board.Close,
		}, nil
	default:
		return Hardware{}, fmt.Errorf("unknown hardware source %q", cfg.Source)
	}
}

func (a *App) openTransports(ctx context.Context, cfg config.Config) ([]sensor.Sink, error) {
	var out []sensor.Sink

	if cfg.MQTT.Broker != "" {
		client, err := sink.DialMQTT(sink.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			client.Disconnect(250)
			return nil
		})
		out = append(out, sink.Logged("mqtt", sink.NewMQTT(client, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS), a.logger, a.Metrics))
	}

	if cfg.Redis.Addr != "" {
		client, err := sink.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		out = append(out, sink.Logged("redis", sink.NewRedisStream(client, cfg.Redis.Stream, cfg.Redis.MaxLen), a.logger, a.Metrics))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		w := sink.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.closers = append(a.closers, w.Close)
		out = append(out, sink.Logged("kafka", sink.NewKafka(w), a.logger, a.Metrics))
	}

	if cfg.PostgresDSN != "" {
		db, err := sink.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		pg, err := sink.NewPostgres(ctx, db)
		if err != nil {
			return nil, err
		}
		out = append(out, sink.Logged("postgres", pg, a.logger, a.Metrics))
	}

	return out, nil
}

// Close stops every sensor, drains the queue and closes sinks and
// hardware. It returns all close errors combined.
func (a *App) Close() error {
	if a.Session != nil {
		a.Session.StopAll()
	}
	return a.closeAll()
}

func (a *App) closeAll() error {
	var err error
	if a.queue != nil {
		err = multierr.Append(err, a.queue.Close())
		a.queue = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i]())
	}
	a.closers = nil
	if err != nil {
		a.logger.Warn("close failed", zap.Error(err))
	}
	return err
}
