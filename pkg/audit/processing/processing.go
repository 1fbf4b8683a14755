// Package processing runs queued analysis jobs: it drives the analyzer
// engines over contract source and aggregates their findings.
package processing

import (
	"context"

	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/models"
)

// TaskRun is the analysis queue task name.
const TaskRun = "run-analysis"

type RunMessage struct {
	AnalysisID uint                   `json:"analysisId"`
	ContractID uint                   `json:"contractId"`
	Options    models.AnalysisOptions `json:"options"`
}

// Enqueuer is the queue surface producers need; the concrete queue
// implements it, tests fake it.
type Enqueuer interface {
	Enqueue(ctx context.Context, task string, message interface{}, eo *queue.EnqueueOptions) (string, error)
}
