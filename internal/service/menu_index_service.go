package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

// MenuProvider returns the menu for a source.
type MenuProvider interface {
	GetMenu(ctx context.Context, source string) ([]models.MenuItem, error)
}

// MenuIndexer replaces the searchable menu.
type MenuIndexer interface {
	Initialize(ctx context.Context, items []models.MenuItem) error
}

// MenuIndexService rebuilds the assistant's menu index, either inline or through a queued job.
type MenuIndexService struct {
	menu     MenuProvider
	indexer  MenuIndexer
	inserter JobInserter
}

// NewMenuIndexService creates a MenuIndexService. inserter may be nil, in which case
// Enqueue reports the job queue as unavailable.
func NewMenuIndexService(menu MenuProvider, indexer MenuIndexer, inserter JobInserter) *MenuIndexService {
	return &MenuIndexService{menu: menu, indexer: indexer, inserter: inserter}
}

// Reindex loads the menu from source and indexes it. It returns the number of items indexed.
func (s *MenuIndexService) Reindex(ctx context.Context, source string) (int, error) {
	source = normalizeSource(source)
	start := time.Now()

	items, err := s.menu.GetMenu(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("load %s menu: %w", source, err)
	}

	if err := s.indexer.Initialize(ctx, items); err != nil {
		return 0, fmt.Errorf("index %s menu: %w", source, err)
	}

	slog.InfoContext(ctx, "Menu indexed", "source", source, "items", len(items), "duration_ms", time.Since(start).Milliseconds())

	return len(items), nil
}

// Enqueue queues a reindex job. A request matching a pending job returns that job.
func (s *MenuIndexService) Enqueue(ctx context.Context, source string) (*models.ReindexResponse, error) {
	if s.inserter == nil {
		return nil, huberrors.NewUnavailableError("job queue")
	}

	source = normalizeSource(source)
	if source != models.MenuSourceLive && source != models.MenuSourceStatic {
		return nil, huberrors.NewValidationError("source", fmt.Sprintf("must be %q or %q", models.MenuSourceLive, models.MenuSourceStatic))
	}

	res, err := s.inserter.Insert(ctx, MenuReindexArgs{Source: source}, nil)
	if err != nil {
		return nil, fmt.Errorf("enqueue menu reindex: %w", err)
	}

	if res.UniqueSkippedAsDuplicate {
		slog.InfoContext(ctx, "Menu reindex already pending", "job_id", res.Job.ID, "source", source)
	}

	return &models.ReindexResponse{JobID: res.Job.ID, Source: source, Queued: true}, nil
}

func normalizeSource(source string) string {
	if source == "" {
		return models.MenuSourceStatic
	}

	return source
}
