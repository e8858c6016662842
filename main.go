// Package main is the sensorapp command line.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luki/sensorapp/internal/app"
	"github.com/luki/sensorapp/internal/config"
	"github.com/luki/sensorapp/internal/logging"
	"github.com/luki/sensorapp/internal/metrics"
	"github.com/luki/sensorapp/internal/monitor"
	"github.com/luki/sensorapp/internal/server"
	"github.com/luki/sensorapp/internal/store"
	"github.com/luki/sensorapp/internal/viewer"
)

const (
	flagConfig   = "config"
	flagSource   = "source"
	flagDataDir  = "data-dir"
	flagLogLevel = "log-level"
	flagHTTP     = "http"

	serviceName = "sensorapp"
	feedSize    = 256
)

func main() {
	a := &cli.App{
		Name:  "sensorapp",
		Usage: "capture on-device sensor readings into a record stream",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "properties file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:  flagSource,
				Usage: "hardware backend: sim, iio, serial or hwmon",
			},
			&cli.StringFlag{
				Name:  flagDataDir,
				Usage: "directory for daily record files",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "record",
				Usage: "report every enabled sensor until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagHTTP,
						Usage: "serve health, control, metrics and the live stream on this address",
					},
				},
				Action: recordAction,
			},
			{
				Name:   "monitor",
				Usage:  "live terminal dashboard",
				Action: monitorAction,
			},
			{
				Name:   "history",
				Usage:  "browse recorded days",
				Action: historyAction,
			},
			{
				Name:   "sensors",
				Usage:  "list sensors and whether the hardware has them",
				Action: sensorsAction,
			},
			{
				Name:   "config",
				Usage:  "print the resolved configuration keys",
				Action: configAction,
			},
		},
	}

	if err := a.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration and applies command line overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String(flagConfig))
	if err != nil {
		return config.Config{}, err
	}
	overrides := map[string]string{
		"source":    c.String(flagSource),
		"data_dir":  c.String(flagDataDir),
		"log.level": c.String(flagLogLevel),
		"http.addr": c.String(flagHTTP),
	}
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := cfg.Set(key, v); err != nil {
			return config.Config{}, err
		}
	}
	if cfg.DataDir == "" {
		cfg.DataDir = store.DefaultDir()
	}
	return cfg, cfg.Validate()
}

func recordAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File, serviceName)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := app.Build(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	logger.Info("recording",
		zap.String("session", a.Session.ID),
		zap.String("source", cfg.Source),
		zap.String("data_dir", a.Store.Dir()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Hub.Run(ctx)
		return nil
	})
	if cfg.HTTPAddr != "" {
		srv := server.New(a.Session, a.Hub, m, logger)
		g.Go(func() error {
			return srv.ListenAndServe(ctx, cfg.HTTPAddr)
		})
	}
	g.Go(func() error {
		return a.Session.Run(ctx)
	})
	return g.Wait()
}

func monitorAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logs always go to a file.
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.DataDir, serviceName+".log")
	}
	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.File, serviceName)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	feed := monitor.NewFeed(feedSize)
	a, err := app.Build(c.Context, cfg, logger, metrics.New(), app.WithSink(feed))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	a.Session.StartAll()
	return monitor.Run(monitor.New(a.Session, feed, a.Store.Dir()))
}

func historyAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	return viewer.Run(cfg.DataDir)
}

func sensorsAction(c *cli.Context) (err error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	// Listing never starts a sensor, so no transports are dialled.
	cfg.MQTT.Broker = ""
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	cfg.PostgresDSN = ""

	a, err := app.Build(c.Context, cfg, zap.NewNop(), nil)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close())
	}()

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SENSOR\tAVAILABLE\tSOURCE\n")
	for _, st := range a.Session.Status() {
		fmt.Fprintf(w, "%s\t%t\t%s\n", st.Type, st.Available, cfg.Source)
	}
	return w.Flush()
}

func configAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tENV\n")
	for _, key := range config.Keys() {
		fmt.Fprintf(w, "%s\t%s\n", key, config.EnvName(key))
	}
	if cfg.PropertiesPath != "" {
		fmt.Fprintf(w, "\nloaded from %s\n", cfg.PropertiesPath)
	}
	return w.Flush()
}
