// Package workers provides River job workers.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/tablebite/ordering/internal/service"
)

const menuReindexTimeout = 3 * time.Minute

// menuReindexer is the minimal interface needed by the worker.
type menuReindexer interface {
	Reindex(ctx context.Context, source string) (int, error)
}

// MenuReindexWorker rebuilds the assistant's menu index.
type MenuReindexWorker struct {
	river.WorkerDefaults[service.MenuReindexArgs]

	reindexer menuReindexer
}

// NewMenuReindexWorker creates a MenuReindexWorker.
func NewMenuReindexWorker(reindexer menuReindexer) *MenuReindexWorker {
	return &MenuReindexWorker{reindexer: reindexer}
}

// Timeout limits how long a reindex may run. Live menus wait on the LLM before embedding.
func (w *MenuReindexWorker) Timeout(*river.Job[service.MenuReindexArgs]) time.Duration {
	return menuReindexTimeout
}

// Work loads the menu and swaps it into the index. On failure the previous index stays live.
func (w *MenuReindexWorker) Work(ctx context.Context, job *river.Job[service.MenuReindexArgs]) error {
	n, err := w.reindexer.Reindex(ctx, job.Args.Source)
	if err != nil {
		slog.Error("menu reindex: failed",
			"job_id", job.ID,
			"source", job.Args.Source,
			"error", err,
		)

		return err
	}

	slog.Info("menu reindex: done",
		"job_id", job.ID,
		"source", job.Args.Source,
		"items", n,
	)

	return nil
}
