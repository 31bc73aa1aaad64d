// Worker consumes audit entries from the tenant-events topic and archives them in Loki.
// Set KAFKA_BROKERS, TENANT_EVENTS_TOPIC, KAFKA_GROUP_ID, and LOKI_URL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront/backend/internal/audit/archive"
	"storefront/backend/internal/audit/loki"
	"storefront/backend/internal/config"
	"storefront/backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, ServiceName: "storefront-audit-worker", Development: !cfg.IsProduction()})
	defer func() { _ = log.Sync() }()

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal("worker: KAFKA_BROKERS is required")
	}
	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}

	reader := archive.NewKafkaReader(brokers, cfg.TenantEventsTopic, cfg.KafkaGroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("worker: consuming",
		zap.String("topic", cfg.TenantEventsTopic),
		zap.String("group", cfg.KafkaGroupID),
		zap.String("loki", cfg.LokiURL))
	archive.NewArchiver(reader, loki.NewClient(cfg.LokiURL, "storefront-audit"), log).Run(ctx)
}
