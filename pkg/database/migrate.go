package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// SchemaResult reports which optional parts of the schema were applied.
type SchemaResult struct {
	// EmbeddingCache is false when the pgvector extension is not installed;
	// embeddings are then recomputed on every index instead of being cached.
	EmbeddingCache bool
}

// ApplySchema creates the order tables and, when pgvector is available, the embedding cache table.
// Statements are idempotent so it runs on every startup.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool) (SchemaResult, error) {
	var result SchemaResult

	orders, err := schemaFS.ReadFile("schema/orders.sql")
	if err != nil {
		return result, fmt.Errorf("read orders schema: %w", err)
	}

	if _, err := pool.Exec(ctx, string(orders)); err != nil {
		return result, fmt.Errorf("apply orders schema: %w", err)
	}

	embeddings, err := schemaFS.ReadFile("schema/menu_embeddings.sql")
	if err != nil {
		return result, fmt.Errorf("read menu_embeddings schema: %w", err)
	}

	if _, err := pool.Exec(ctx, string(embeddings)); err != nil {
		slog.WarnContext(ctx, "pgvector unavailable, embedding cache disabled", "error", err)

		return result, nil
	}

	result.EmbeddingCache = true

	return result, nil
}

// MigrateRiver brings River's job tables up to the version of the linked library.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}

	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate: %w", err)
	}

	for _, v := range res.Versions {
		slog.InfoContext(ctx, "applied river migration", "version", v.Version)
	}

	return nil
}
