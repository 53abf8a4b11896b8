// Command servicehost runs the service lifecycle host: it wires the event
// bus, module registry, and lifecycle controller over the platform's
// service facility, and optionally bridges bus events to external brokers.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	natsbridge "github.com/next-trace/scg-service-host/bridge/nats"
	rabbitbridge "github.com/next-trace/scg-service-host/bridge/rabbitmq"
	"github.com/next-trace/scg-service-host/config"
	"github.com/next-trace/scg-service-host/host"
	"github.com/next-trace/scg-service-host/registry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("servicehost: fatal", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("servicehost", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to TOML config file")
	logLevel := fs.String("log-level", "", "override configured log level (debug|info|warn|error)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// Configuration errors are fatal: the process must not proceed to
	// register with the OS facility on a broken config.
	cfg := config.Default()

	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	fac, runFacility, sessions := newFacility(cfg.ServiceName, logger)

	h, err := host.New(fac, sessions, logger)
	if err != nil {
		return err
	}

	cleanups := attachBridges(cfg, h.Registry, logger)
	defer func() {
		for _, cleanup := range cleanups {
			cleanup()
		}
	}()

	if err := h.Controller.Start(); err != nil {
		return err
	}

	return runFacility(context.Background())
}

// attachBridges wires the configured broker bridges. Bridge failures are
// recoverable: the host keeps running without the bridge.
func attachBridges(cfg config.Config, reg *registry.Registry, logger *slog.Logger) []func() {
	var cleanups []func()

	if cfg.NATS.URL != "" {
		fw, cleanup, err := natsbridge.NewWithNATS(natsbridge.Config{
			URL:           cfg.NATS.URL,
			Name:          cfg.NATS.Name,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		}, logger)
		if err != nil {
			logger.Error("nats bridge disabled", "err", err)
		} else if err := fw.Attach(reg); err != nil {
			logger.Error("nats bridge disabled", "err", err)
			cleanup()
		} else {
			cleanups = append(cleanups, func() { fw.Detach(); cleanup() })
		}
	}

	if cfg.RabbitMQ.URL != "" {
		fw, cleanup, err := rabbitbridge.NewWithAMQPConn(rabbitbridge.Config{
			URL: cfg.RabbitMQ.URL,
		}, logger)
		if err != nil {
			logger.Error("rabbitmq bridge disabled", "err", err)
		} else if err := fw.Attach(reg); err != nil {
			logger.Error("rabbitmq bridge disabled", "err", err)
			cleanup()
		} else {
			cleanups = append(cleanups, func() { fw.Detach(); cleanup() })
		}
	}

	if cleanup, ok := attachKafka(cfg.Kafka, reg, logger); ok {
		cleanups = append(cleanups, cleanup)
	}

	return cleanups
}
