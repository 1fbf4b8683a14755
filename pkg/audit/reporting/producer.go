package reporting

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

func (p Producer) Put(ctx context.Context, reportID, contractID uint, formats []models.ReportFormat) error {
	msg := GenerateMessage{
		ReportID:   reportID,
		ContractID: contractID,
		Formats:    formats,
	}
	if _, err := p.q.Enqueue(ctx, TaskGenerate, msg, nil); err != nil {
		return errors.Wrapf(err, "can't enqueue report %d", reportID)
	}
	return nil
}
