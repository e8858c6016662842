// Package logging builds the process logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLevel maps "debug", "info", "warn" and "error" to a zap level.
// Anything else is info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger creates the process logger.
// level: "debug", "info", "warn", "error" (default "info")
// format: "json" or "console" (default "json")
// file: rotating log file; empty logs to stderr
// serviceName: attached to every entry when non-empty
func NewLogger(level, format, file, serviceName string) (*zap.Logger, error) {
	zapLevel := ParseLevel(level)

	var base *zap.Logger
	if file != "" {
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    20, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
		}
		base = zap.New(zapcore.NewCore(encoder(format), zapcore.AddSync(rotator), zapLevel), zap.AddCaller())
	} else {
		var config zap.Config
		if format == "console" {
			config = zap.NewDevelopmentConfig()
		} else {
			config = zap.NewProductionConfig()
			config.EncoderConfig.TimeKey = "timestamp"
			config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		config.Level = zap.NewAtomicLevelAt(zapLevel)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}

		var err error
		base, err = config.Build()
		if err != nil {
			return nil, err
		}
	}

	if serviceName != "" {
		base = base.With(zap.String("service_name", serviceName))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		base = base.With(zap.String("hostname", hostname))
	}
	return base, nil
}

func encoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}
