package service

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	menuReindexKind = "menu_reindex"
	// MenuIndexQueueName is the River queue used for menu reindex jobs.
	MenuIndexQueueName = "menu_index"
)

// JobInserter inserts jobs (e.g. River client).
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// MenuReindexArgs is the job payload for rebuilding the menu index from one source.
// Uniqueness is by Source so repeated requests collapse into the pending job.
type MenuReindexArgs struct {
	Source string `json:"source" river:"unique"`
}

// Kind returns the River job kind.
func (MenuReindexArgs) Kind() string { return menuReindexKind }

// InsertOpts pins the queue. A failed reindex is not retried; the previous index stays live.
func (MenuReindexArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{Queue: MenuIndexQueueName, MaxAttempts: 1}
}

var (
	_ river.JobArgs               = MenuReindexArgs{}
	_ river.JobArgsWithInsertOpts = MenuReindexArgs{}
)
