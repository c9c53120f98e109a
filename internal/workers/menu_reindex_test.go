package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablebite/ordering/internal/service"
)

type mockReindexer struct {
	source string
	n      int
	err    error
}

func (m *mockReindexer) Reindex(_ context.Context, source string) (int, error) {
	m.source = source

	return m.n, m.err
}

func TestMenuReindexWorker_Work(t *testing.T) {
	ctx := context.Background()
	job := &river.Job[service.MenuReindexArgs]{
		JobRow: &rivertype.JobRow{ID: 42},
		Args:   service.MenuReindexArgs{Source: "live"},
	}

	t.Run("reindexes requested source", func(t *testing.T) {
		r := &mockReindexer{n: 8}
		worker := NewMenuReindexWorker(r)

		require.NoError(t, worker.Work(ctx, job))
		assert.Equal(t, "live", r.source)
	})

	t.Run("returns reindex error", func(t *testing.T) {
		r := &mockReindexer{err: errors.New("embedding provider down")}
		worker := NewMenuReindexWorker(r)

		require.Error(t, worker.Work(ctx, job))
	})

	t.Run("timeout", func(t *testing.T) {
		worker := NewMenuReindexWorker(&mockReindexer{})

		assert.Equal(t, 3*time.Minute, worker.Timeout(job))
	})
}
