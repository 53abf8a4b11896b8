//go:build franz

package main

import (
	"log/slog"

	kafkabridge "github.com/next-trace/scg-service-host/bridge/kafka"
	"github.com/next-trace/scg-service-host/config"
	"github.com/next-trace/scg-service-host/registry"
)

func attachKafka(cfg config.KafkaConfig, reg *registry.Registry, logger *slog.Logger) (func(), bool) {
	if len(cfg.Brokers) == 0 {
		return nil, false
	}

	fw, cleanup, err := kafkabridge.NewWithKgo(kafkabridge.Config{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		ClientID: cfg.ClientID,
	}, logger)
	if err != nil {
		logger.Error("kafka bridge disabled", "err", err)

		return nil, false
	}

	if err := fw.Attach(reg); err != nil {
		cleanup()
		logger.Error("kafka bridge disabled", "err", err)

		return nil, false
	}

	return func() { fw.Detach(); cleanup() }, true
}
