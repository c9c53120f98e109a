// Command api serves the restaurant ordering API: menu, orders and the menu assistant.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tablebite/ordering/internal/config"
	"github.com/tablebite/ordering/internal/observability"
	"github.com/tablebite/ordering/pkg/database"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)

		return 1
	}

	observability.SetupLogging(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return 1
	}
	defer db.Close()

	schema, err := database.ApplySchema(ctx, db)
	if err != nil {
		slog.Error("Failed to apply schema", "error", err)

		return 1
	}

	if err := database.MigrateRiver(ctx, db); err != nil {
		slog.Error("Failed to migrate job queue", "error", err)

		return 1
	}

	app, err := NewApp(ctx, cfg, db, schema)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)

		return 1
	}

	runErr := app.Run(ctx)
	if runErr != nil {
		slog.Error("Application stopped with error", "error", runErr)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)

		return 1
	}

	if runErr != nil {
		return 1
	}

	slog.Info("Server stopped")

	return 0
}
