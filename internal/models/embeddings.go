package models

import "time"

// EmbeddingRecord pairs a menu item with its vector. ContentHash identifies the
// text that was embedded, so a changed item is re-embedded on the next index.
type EmbeddingRecord struct {
	Item        MenuItem
	ContentHash string
	Vector      []float32
}

// StoredEmbedding is one row of the menu_embeddings table.
type StoredEmbedding struct {
	ContentHash string    `json:"content_hash"`
	Model       string    `json:"model"`
	ItemName    string    `json:"item_name"`
	Embedding   []float32 `json:"embedding"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RetrievalResult is a menu item ranked by similarity to a query. Rank is 1-based.
type RetrievalResult struct {
	Item       MenuItem
	Similarity float64
	Rank       int
}
