// Package reporting runs queued report-generation jobs: it renders the
// requested formats from a completed analysis and stores the files.
package reporting

import (
	"context"

	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/models"
)

// TaskGenerate is the report queue task name.
const TaskGenerate = "generate-report"

type GenerateMessage struct {
	ReportID   uint                  `json:"reportId"`
	ContractID uint                  `json:"contractId"`
	Formats    []models.ReportFormat `json:"formats"`
}

type Enqueuer interface {
	Enqueue(ctx context.Context, task string, message interface{}, eo *queue.EnqueueOptions) (string, error)
}
