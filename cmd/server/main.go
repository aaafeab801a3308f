// Package main implements the entry point for the Quiz Master API server,
// which manages quizzes and runs the asynchronous task layer behind them:
// bulk notifications, monthly performance reports, and login analytics.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"

	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/config"
	"github.com/NITESHBHARDWAJ001/Quiz-Master/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command (up, down, status, version) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.Setup(cfg.Server)
	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)
	if cfg.Database.URL == "" {
		appLogger.Warn("no database URL configured, running on in-memory stores; nothing survives a restart")
	}

	if *migrateCmd != "" {
		if err := runMigrations(cfg, *migrateCmd); err != nil {
			appLogger.Error("Migration failed", "command", *migrateCmd, "error", err)
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	ctx := context.Background()
	app, err := newApplication(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		slog.Error("Server exited with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}
