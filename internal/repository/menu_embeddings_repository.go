package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tablebite/ordering/internal/models"
)

// MenuEmbeddingsRepository caches menu item embeddings in the menu_embeddings table.
// Vectors travel in pgvector's text form so no type registration is needed on the pool;
// the table only exists when the vector extension is installed.
type MenuEmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewMenuEmbeddingsRepository creates a new menu embeddings repository.
func NewMenuEmbeddingsRepository(db *pgxpool.Pool) *MenuEmbeddingsRepository {
	return &MenuEmbeddingsRepository{db: db}
}

// LoadEmbeddings returns stored vectors for the given content hashes, keyed by hash.
// Hashes without a row for model are absent from the result.
func (r *MenuEmbeddingsRepository) LoadEmbeddings(
	ctx context.Context, model string, contentHashes []string,
) (map[string][]float32, error) {
	out := make(map[string][]float32, len(contentHashes))
	if len(contentHashes) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT content_hash, embedding::text
		FROM menu_embeddings
		WHERE model = $1 AND content_hash = ANY($2)
	`, model, contentHashes)
	if err != nil {
		return nil, fmt.Errorf("load menu embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			hash string
			vec  pgvector.Vector
		)

		if err := rows.Scan(&hash, &vec); err != nil {
			return nil, fmt.Errorf("scan menu embedding: %w", err)
		}

		out[hash] = vec.Slice()
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu embeddings: %w", err)
	}

	return out, nil
}

// SaveEmbeddings upserts one row per record for model in a single batch.
func (r *MenuEmbeddingsRepository) SaveEmbeddings(ctx context.Context, model string, records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	batch := &pgx.Batch{}

	for _, rec := range records {
		batch.Queue(`
			INSERT INTO menu_embeddings (content_hash, model, item_name, embedding, updated_at)
			VALUES ($1, $2, $3, $4::text::vector, $5)
			ON CONFLICT (content_hash, model)
			DO UPDATE SET embedding = EXCLUDED.embedding, item_name = EXCLUDED.item_name, updated_at = EXCLUDED.updated_at`,
			rec.ContentHash, model, rec.Item.Name, pgvector.NewVector(rec.Vector).String(), now,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save menu embeddings: %w", err)
	}

	return nil
}

// List returns every stored embedding for model, newest first.
func (r *MenuEmbeddingsRepository) List(ctx context.Context, model string) ([]models.StoredEmbedding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT content_hash, model, item_name, embedding::text, updated_at
		FROM menu_embeddings
		WHERE model = $1
		ORDER BY updated_at DESC, content_hash
	`, model)
	if err != nil {
		return nil, fmt.Errorf("list menu embeddings: %w", err)
	}
	defer rows.Close()

	var out []models.StoredEmbedding

	for rows.Next() {
		var (
			e   models.StoredEmbedding
			vec pgvector.Vector
		)

		if err := rows.Scan(&e.ContentHash, &e.Model, &e.ItemName, &vec, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan menu embedding: %w", err)
		}

		e.Embedding = vec.Slice()
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating menu embeddings: %w", err)
	}

	return out, nil
}

// DeleteModel removes all rows for model, forcing a full re-embed on the next index.
func (r *MenuEmbeddingsRepository) DeleteModel(ctx context.Context, model string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM menu_embeddings WHERE model = $1`, model)
	if err != nil {
		return 0, fmt.Errorf("delete menu embeddings: %w", err)
	}

	return tag.RowsAffected(), nil
}
