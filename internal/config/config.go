// Package config resolves runtime settings by layering defaults, an
// optional key=value properties file and SENSORAPP_* environment
// variables.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/luki/sensorapp/internal/sensor"
)

// EnvPrefix prefixes every environment override. The variable name is the
// property key upper-cased with dots replaced by underscores, so
// mqtt.broker becomes SENSORAPP_MQTT_BROKER.
const EnvPrefix = "SENSORAPP_"

// Hardware backends.
const (
	SourceSim    = "sim"
	SourceIIO    = "iio"
	SourceSerial = "serial"
	SourceHwmon  = "hwmon"
)

// MQTT configures the optional MQTT sink. Broker empty disables it.
type MQTT struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

// Redis configures the optional Redis Streams sink. Addr empty disables it.
type Redis struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// Kafka configures the optional Kafka sink. No brokers disables it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Log configures the logger.
type Log struct {
	Level  string
	Format string // json or console
	File   string // empty writes to stderr
}

// Config captures all runtime settings.
type Config struct {
	Source     string
	Sensors    []sensor.Type
	Intervals  map[sensor.Type]time.Duration
	DateLayout string
	DataDir    string
	SimSeed    int64

	IIORoot    string
	HwmonRoot  string
	HwmonChip  string
	SerialPort string
	SerialBaud int

	MQTT        MQTT
	Redis       Redis
	Kafka       Kafka
	PostgresDSN string

	HTTPAddr   string
	QueueDepth int
	Log        Log

	// PropertiesPath records the file the properties were read from.
	PropertiesPath string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Source:     SourceSim,
		Sensors:    sensor.Types(),
		Intervals:  map[sensor.Type]time.Duration{},
		DateLayout: sensor.DateLayout,
		SimSeed:    1,
		SerialBaud: 9600,
		MQTT: MQTT{
			ClientID:    "sensorapp",
			TopicPrefix: "sensorapp",
			QoS:         1,
		},
		Redis: Redis{
			Stream: "sensorapp:records",
			MaxLen: 100000,
		},
		Kafka: Kafka{
			Topic: "sensorapp.records",
		},
		QueueDepth: 64,
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves configuration from defaults, the properties file at path
// and the environment. An empty path falls back to SENSORAPP_CONFIG; a
// missing file is only an error when the path was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvPrefix + "CONFIG"))
	}
	if path != "" {
		err := applyProperties(&cfg, path)
		switch {
		case err == nil:
			cfg.PropertiesPath = path
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyProperties(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid properties entry on line %d", line)
		}
		if err := cfg.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read properties: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	for _, key := range Keys() {
		name := EnvName(key)
		if v, ok := os.LookupEnv(name); ok {
			if err := cfg.Set(key, strings.TrimSpace(v)); err != nil {
				return fmt.Errorf("env %s: %w", name, err)
			}
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

type setter func(cfg *Config, value string) error

func str(field func(*Config) *string) setter {
	return func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}
}

func integer(field func(*Config) *int) setter {
	return func(cfg *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		*field(cfg) = n
		return nil
	}
}

var setters = map[string]setter{
	"source": func(cfg *Config, v string) error {
		cfg.Source = strings.ToLower(v)
		return nil
	},
	"sensors": func(cfg *Config, v string) error {
		var types []sensor.Type
		for _, name := range splitAndTrim(v) {
			t, err := sensor.ParseType(name)
			if err != nil {
				return err
			}
			types = append(types, t)
		}
		cfg.Sensors = types
		return nil
	},
	"date_layout": str(func(c *Config) *string { return &c.DateLayout }),
	"data_dir":    str(func(c *Config) *string { return &c.DataDir }),
	"sim.seed": func(cfg *Config, v string) error {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		cfg.SimSeed = n
		return nil
	},
	"iio.root":    str(func(c *Config) *string { return &c.IIORoot }),
	"hwmon.root":  str(func(c *Config) *string { return &c.HwmonRoot }),
	"hwmon.chip":  str(func(c *Config) *string { return &c.HwmonChip }),
	"serial.port": str(func(c *Config) *string { return &c.SerialPort }),
	"serial.baud": integer(func(c *Config) *int { return &c.SerialBaud }),

	"mqtt.broker":       str(func(c *Config) *string { return &c.MQTT.Broker }),
	"mqtt.client_id":    str(func(c *Config) *string { return &c.MQTT.ClientID }),
	"mqtt.username":     str(func(c *Config) *string { return &c.MQTT.Username }),
	"mqtt.password":     str(func(c *Config) *string { return &c.MQTT.Password }),
	"mqtt.topic_prefix": str(func(c *Config) *string { return &c.MQTT.TopicPrefix }),
	"mqtt.qos": func(cfg *Config, v string) error {
		q, err := cast.ToUint8E(v)
		if err != nil {
			return err
		}
		cfg.MQTT.QoS = q
		return nil
	},

	"redis.addr":     str(func(c *Config) *string { return &c.Redis.Addr }),
	"redis.password": str(func(c *Config) *string { return &c.Redis.Password }),
	"redis.db":       integer(func(c *Config) *int { return &c.Redis.DB }),
	"redis.stream":   str(func(c *Config) *string { return &c.Redis.Stream }),
	"redis.maxlen": func(cfg *Config, v string) error {
		n, err := cast.ToInt64E(v)
		if err != nil {
			return err
		}
		cfg.Redis.MaxLen = n
		return nil
	},

	"kafka.brokers": func(cfg *Config, v string) error {
		cfg.Kafka.Brokers = splitAndTrim(v)
		return nil
	},
	"kafka.topic": str(func(c *Config) *string { return &c.Kafka.Topic }),

	"postgres.dsn": str(func(c *Config) *string { return &c.PostgresDSN }),
	"http.addr":    str(func(c *Config) *string { return &c.HTTPAddr }),
	"queue.depth":  integer(func(c *Config) *int { return &c.QueueDepth }),

	"log.level":  str(func(c *Config) *string { return &c.Log.Level }),
	"log.format": str(func(c *Config) *string { return &c.Log.Format }),
	"log.file":   str(func(c *Config) *string { return &c.Log.File }),
}

func init() {
	for _, t := range sensor.Types() {
		setters[intervalKey(t)] = func(cfg *Config, v string) error {
			d, err := cast.ToDurationE(v)
			if err != nil {
				return err
			}
			if cfg.Intervals == nil {
				cfg.Intervals = map[sensor.Type]time.Duration{}
			}
			cfg.Intervals[t] = d
			return nil
		}
	}
}

func intervalKey(t sensor.Type) string {
	return "interval." + strings.ToLower(t.String())
}

// Keys lists every recognised property key in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies one property.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown property %q", key)
	}
	if err := set(c, value); err != nil {
		return fmt.Errorf("property %s: %w", key, err)
	}
	return nil
}

// Interval returns the configured sampling period of t, or zero to keep
// the sensor's default.
func (c Config) Interval(t sensor.Type) time.Duration {
	return c.Intervals[t]
}

// Enabled reports whether sensor type t should be built.
func (c Config) Enabled(t sensor.Type) bool {
	for _, have := range c.Sensors {
		if have == t {
			return true
		}
	}
	return false
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSim, SourceIIO, SourceSerial, SourceHwmon:
	default:
		return fmt.Errorf("source must be one of sim, iio, serial, hwmon; got %q", c.Source)
	}
	if c.Source == SourceSerial && c.SerialPort == "" {
		return errors.New("serial.port is required for the serial source")
	}
	if len(c.Sensors) == 0 {
		return errors.New("sensors must name at least one sensor")
	}
	for t, d := range c.Intervals {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", intervalKey(t))
		}
	}
	if c.DateLayout == "" {
		return errors.New("date_layout cannot be empty")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2; got %d", c.MQTT.QoS)
	}
	if c.Redis.Addr != "" && c.Redis.Stream == "" {
		return errors.New("redis.stream is required when redis.addr is set")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return errors.New("kafka.topic is required when kafka.brokers is set")
	}
	if c.QueueDepth < 0 {
		return errors.New("queue.depth must not be negative")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console; got %q", c.Log.Format)
	}
	return nil
}

func splitAndTrim(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
