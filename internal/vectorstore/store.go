// Package vectorstore holds menu item embeddings in memory and answers
// nearest-neighbor queries by cosine similarity.
package vectorstore

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tablebite/ordering/internal/models"
	"github.com/tablebite/ordering/internal/observability"
	"github.com/tablebite/ordering/pkg/cache"
	pkgembeddings "github.com/tablebite/ordering/pkg/embeddings"
)

const (
	queryEmbeddingCacheName   = "query_embedding"
	defaultQueryCacheSize     = 512
	defaultEmbedConcurrency   = 4
	defaultEmbedTimeoutPerRun = 2 * time.Minute
)

var (
	// ErrInvalidTopK is returned when k is not positive.
	ErrInvalidTopK = errors.New("vectorstore: k must be a positive integer")
	// ErrNoEmbedder is returned by Initialize when no embedding client is configured.
	ErrNoEmbedder = errors.New("vectorstore: no embedding client configured")
)

// Embedder computes embeddings. Implemented by the OpenAI, Gemini and hashing clients.
type Embedder interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
	EmbeddingModel() string
}

// EmbeddingCache persists item embeddings across restarts, keyed by content hash and model.
type EmbeddingCache interface {
	LoadEmbeddings(ctx context.Context, model string, contentHashes []string) (map[string][]float32, error)
	SaveEmbeddings(ctx context.Context, model string, records []models.EmbeddingRecord) error
}

// Options configures a Store. Only Embedder is needed for a working store.
type Options struct {
	Embedder       Embedder
	Cache          EmbeddingCache
	QueryCacheSize int
	Concurrency    int
	CacheMetrics   observability.CacheMetrics
	LLMMetrics     observability.LLMMetrics
	Logger         *slog.Logger
}

// Store is the process-wide menu index. The working set is replaced atomically
// by Initialize and read concurrently by SemanticSearch.
type Store struct {
	embedder     Embedder
	cache        EmbeddingCache
	queryCache   *cache.LoaderCache[[]float32]
	concurrency  int
	cacheMetrics observability.CacheMetrics
	llmMetrics   observability.LLMMetrics
	logger       *slog.Logger

	mu      sync.RWMutex
	records []models.EmbeddingRecord
	ready   bool
}

// New creates an uninitialized store.
func New(opts Options) (*Store, error) {
	size := opts.QueryCacheSize
	if size <= 0 {
		size = defaultQueryCacheSize
	}

	qc, err := cache.NewLoaderCache[[]float32](size)
	if err != nil {
		return nil, fmt.Errorf("query embedding cache: %w", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		embedder:     opts.Embedder,
		cache:        opts.Cache,
		queryCache:   qc,
		concurrency:  concurrency,
		cacheMetrics: opts.CacheMetrics,
		llmMetrics:   opts.LLMMetrics,
		logger:       logger,
	}, nil
}

// ContentHash identifies the embedded text of an item.
func ContentHash(item models.MenuItem) string {
	sum := sha256.Sum256([]byte(item.EmbeddingText()))

	return hex.EncodeToString(sum[:])
}

// Initialize embeds items and replaces the working set. Embeddings found in the
// cache are reused. On any failure the previous working set stays in place.
func (s *Store) Initialize(ctx context.Context, items []models.MenuItem) error {
	if s.embedder == nil {
		return ErrNoEmbedder
	}

	ctx, cancel := context.WithTimeout(ctx, defaultEmbedTimeoutPerRun)
	defer cancel()

	model := s.embedder.EmbeddingModel()
	records := make([]models.EmbeddingRecord, len(items))
	hashes := make([]string, len(items))

	for i, item := range items {
		records[i] = models.EmbeddingRecord{Item: item, ContentHash: ContentHash(item)}
		hashes[i] = records[i].ContentHash
	}

	cached := s.loadCached(ctx, model, hashes)

	var (
		missing []int
		group   errgroup.Group
	)

	group.SetLimit(s.concurrency)

	for i := range records {
		if vec, ok := cached[records[i].ContentHash]; ok {
			records[i].Vector = vec

			continue
		}

		missing = append(missing, i)

		group.Go(func() error {
			vec, err := s.embed(ctx, records[i].Item.EmbeddingText())
			if err != nil {
				return fmt.Errorf("embed %q: %w", records[i].Item.Name, err)
			}

			records[i].Vector = vec

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	if err := checkDimensions(records); err != nil {
		return err
	}

	if len(missing) > 0 && s.cache != nil {
		fresh := make([]models.EmbeddingRecord, 0, len(missing))
		for _, i := range missing {
			fresh = append(fresh, records[i])
		}

		if err := s.cache.SaveEmbeddings(ctx, model, fresh); err != nil {
			s.logger.WarnContext(ctx, "vectorstore: save embeddings failed", "error", err, "count", len(fresh))
		}
	}

	s.mu.Lock()
	s.records = records
	s.ready = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "vectorstore: initialized",
		"items", len(records), "cached", len(records)-len(missing), "embedded", len(missing), "model", model)

	return nil
}

// IsInitialized reports whether a working set is loaded.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ready
}

// Len returns the number of indexed items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// SemanticSearch returns up to k items ordered by descending cosine similarity to query.
// Equal scores keep menu order. An uninitialized store or a blank query yields no results.
func (s *Store) SemanticSearch(ctx context.Context, query string, k int) ([]models.RetrievalResult, error) {
	if k <= 0 {
		return nil, ErrInvalidTopK
	}

	s.mu.RLock()
	records := s.records
	ready := s.ready
	s.mu.RUnlock()

	query = strings.TrimSpace(query)
	if !ready || query == "" || len(records) == 0 {
		return []models.RetrievalResult{}, nil
	}

	queryVec, err := s.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.RetrievalResult, len(records))
	for i, rec := range records {
		sim, simErr := pkgembeddings.CosineSimilarity(queryVec, rec.Vector)
		if simErr != nil {
			return nil, fmt.Errorf("score %q: %w", rec.Item.Name, simErr)
		}

		results[i] = models.RetrievalResult{Item: rec.Item, Similarity: sim}
	}

	slices.SortStableFunc(results, func(a, b models.RetrievalResult) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	results = results[:min(k, len(results))]
	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

func (s *Store) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	vec, hit, err := s.queryCache.Get(ctx, query, s.embed)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, queryEmbeddingCacheName)
		} else {
			s.cacheMetrics.RecordMiss(ctx, queryEmbeddingCacheName)
		}
	}

	return vec, nil
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := s.embedder.CreateEmbedding(ctx, text)

	if s.llmMetrics != nil {
		outcome := observability.OutcomeSuccess
		if err != nil {
			outcome = observability.OutcomeError
			if errors.Is(err, context.DeadlineExceeded) {
				outcome = observability.OutcomeTimeout
			}
		}

		s.llmMetrics.RecordCall(ctx, observability.OperationEmbedding, outcome, time.Since(start))
	}

	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	return vec, nil
}

func (s *Store) loadCached(ctx context.Context, model string, hashes []string) map[string][]float32 {
	if s.cache == nil || len(hashes) == 0 {
		return nil
	}

	cached, err := s.cache.LoadEmbeddings(ctx, model, hashes)
	if err != nil {
		s.logger.WarnContext(ctx, "vectorstore: load cached embeddings failed", "error", err)

		return nil
	}

	return cached
}

func checkDimensions(records []models.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	dim := len(records[0].Vector)
	for _, rec := range records[1:] {
		if len(rec.Vector) != dim {
			return fmt.Errorf("%w: %q has %d, want %d", pkgembeddings.ErrDimensionMismatch, rec.Item.Name, len(rec.Vector), dim)
		}
	}

	return nil
}
