package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"marketinsight/internal/config"
	"marketinsight/internal/db"
	"marketinsight/internal/logging"
)

// go run ./cmd/migrate
// DB_DRIVER=postgres DATABASE_URL=postgres://... go run ./cmd/migrate
func main() {
	driver := flag.String("driver", "", "override DB_DRIVER ('postgres' or 'sqlite3')")
	flag.Parse()

	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	defer logging.Install(logger)()

	if *driver != "" {
		cfg.DBDriver = *driver
	}
	dsn := cfg.SQLitePath
	if cfg.DBDriver == db.DriverPostgres {
		dsn = cfg.DatabaseURL
	}

	conn, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		zap.L().Fatal("migrate: open database", zap.Error(err))
	}
	defer conn.Close()

	if err := db.Migrate(context.Background(), conn, cfg.DBDriver); err != nil {
		zap.L().Fatal("migrate: failed", zap.Error(err))
	}
}
