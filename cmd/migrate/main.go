// migrate applies the embedded tenant schema; use with go run ./cmd/migrate [-direction up|down] [-version].
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront/backend/internal/config"
	"storefront/backend/internal/db/migrate"
	"storefront/backend/internal/logger"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	showVersion := flag.Bool("version", false, "Print the current schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, ServiceName: "storefront-migrate", Development: !cfg.IsProduction()})
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	if !*showVersion {
		if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
			log.Fatal("migrate failed", zap.String("direction", *direction), zap.Error(err))
		}
	}

	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("read schema version", zap.Error(err))
	}
	log.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
