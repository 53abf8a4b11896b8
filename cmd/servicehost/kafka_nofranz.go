//go:build !franz

package main

import (
	"log/slog"

	"github.com/next-trace/scg-service-host/config"
	"github.com/next-trace/scg-service-host/registry"
)

func attachKafka(cfg config.KafkaConfig, _ *registry.Registry, logger *slog.Logger) (func(), bool) {
	if len(cfg.Brokers) > 0 {
		logger.Warn("kafka bridge configured but binary built without the franz tag")
	}

	return nil, false
}
