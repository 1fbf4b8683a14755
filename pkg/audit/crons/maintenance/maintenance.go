// Package maintenance holds the recurring cleanup jobs: pruning old
// analyzes nothing references anymore and purging finished queue jobs.
package maintenance

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/shared/queue"
)

const (
	TaskPruneAnalyzes = "prune-analyzes"
	TaskPurgeQueues   = "purge-queues"

	pruneInterval = 24 * time.Hour
	purgeInterval = 6 * time.Hour

	// analysisRetention is how long a completed analysis with no report
	// outlives its completion.
	analysisRetention = 30 * 24 * time.Hour

	completedJobRetention = 24 * time.Hour
	failedJobRetention    = 7 * 24 * time.Hour
)

type PruneMessage struct{}

type PurgeMessage struct{}

// Schedule arms both repeat jobs on the maintenance queue. The fixed
// job ids make re-arming on every service start idempotent.
func Schedule(ctx context.Context, q *queue.Queue) error {
	_, err := q.Enqueue(ctx, TaskPruneAnalyzes, PruneMessage{}, &queue.EnqueueOptions{
		JobID:       TaskPruneAnalyzes,
		RepeatEvery: pruneInterval,
	})
	if err != nil {
		return errors.Wrap(err, "can't schedule analyzes pruning")
	}

	_, err = q.Enqueue(ctx, TaskPurgeQueues, PurgeMessage{}, &queue.EnqueueOptions{
		JobID:       TaskPurgeQueues,
		RepeatEvery: purgeInterval,
	})
	if err != nil {
		return errors.Wrap(err, "can't schedule queue purging")
	}
	return nil
}
