package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/tablebite/ordering/pkg/database"
)

const postgresImage = "pgvector/pgvector:pg16"

// setupTestDB starts a throwaway Postgres with pgvector and applies the schema.
// Skipped in -short mode and when no container runtime is available.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("restaurant"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	result, err := database.ApplySchema(ctx, db)
	require.NoError(t, err)
	require.True(t, result.EmbeddingCache)

	return db
}
