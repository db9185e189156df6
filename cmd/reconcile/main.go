// Command reconcile compares stored balances and enrollments against the
// credit ledger and exits non-zero when they disagree.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"edupair/internal/config"
	"edupair/internal/logger"
	"edupair/internal/repository"
	"edupair/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		slog.Error("failed to load DB config", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			slog.Error("invalid LOG_LEVEL", "error", err)
			os.Exit(1)
		}
	}
	log := logger.New(level)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbPool, err := config.ConnectDB(ctx, dbCfg, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	report, err := service.NewReconciler(repository.NewStore(dbPool), log).Check(ctx)
	if err != nil {
		log.Error("reconciliation failed", "error", err)
		os.Exit(1)
	}
	if !report.Clean() {
		dbPool.Close()
		os.Exit(2)
	}
}
