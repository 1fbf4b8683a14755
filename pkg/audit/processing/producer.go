package processing

import (
	"context"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

type Producer struct {
	q Enqueuer
}

func NewProducer(q Enqueuer) *Producer {
	return &Producer{q: q}
}

func (p Producer) Put(ctx context.Context, analysisID, contractID uint, opts models.AnalysisOptions) error {
	msg := RunMessage{
		AnalysisID: analysisID,
		ContractID: contractID,
		Options:    opts,
	}
	if _, err := p.q.Enqueue(ctx, TaskRun, msg, nil); err != nil {
		return errors.Wrapf(err, "can't enqueue analysis %d", analysisID)
	}
	return nil
}
