package maintenance

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/internal/shared/logutil"
	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

// Purger is the queue cleanup surface; *queue.Queue implements it.
type Purger interface {
	Name() string
	Purge(st queue.Status, olderThan time.Duration) (int, error)
}

type Consumer struct {
	log    logutil.Log
	stores *store.Stores
	queues []Purger
}

func NewConsumer(log logutil.Log, stores *store.Stores, queues []Purger) *Consumer {
	return &Consumer{
		log:    log,
		stores: stores,
		queues: queues,
	}
}

// PruneAnalyzes deletes completed analyzes past the retention window
// that no report references.
func (c Consumer) PruneAnalyzes(ctx context.Context, msg *PruneMessage) error {
	cutoff := time.Now().Add(-analysisRetention)

	analyzes, err := c.stores.Analyzes.ListPrunable(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, a := range analyzes {
		if err = c.stores.Analyzes.Delete(ctx, a.ID); err != nil {
			return err
		}
	}

	if len(analyzes) != 0 {
		c.log.Infof("Pruned %d orphaned analyzes completed before %s",
			len(analyzes), cutoff.Format(time.RFC3339))
	}
	return nil
}

// PurgeQueues drops finished jobs past retention from every registered
// queue, on top of the queues' own per-job retention.
func (c Consumer) PurgeQueues(ctx context.Context, msg *PurgeMessage) error {
	for _, q := range c.queues {
		completed, err := q.Purge(queue.StatusCompleted, completedJobRetention)
		if err != nil {
			return err
		}
		failed, err := q.Purge(queue.StatusFailed, failedJobRetention)
		if err != nil {
			return err
		}
		if completed+failed != 0 {
			c.log.Infof("Purged %d completed and %d failed jobs from queue %s",
				completed, failed, q.Name())
		}
	}
	return nil
}
