package queueadmin

import (
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/internal/shared/queue"
	"github.com/solguard/solguard-api/pkg/audit/request"
)

type Service interface {
	//url:/v1/admin/queues/{queue}
	Counts(rc *request.AuthorizedContext, queueName string) (*queue.Counts, error)

	//url:/v1/admin/queues/{queue}/jobs/{jobid}/wait method:POST
	ForceWait(rc *request.AuthorizedContext, queueName, jobID string) error
}

type BasicService struct {
	Queues map[string]*queue.Queue
}

func (s BasicService) queue(name string) (*queue.Queue, error) {
	q, ok := s.Queues[name]
	if !ok {
		return nil, errors.Wrapf(apierrors.ErrNotFound, "no queue %s", name)
	}
	return q, nil
}

func (s BasicService) Counts(rc *request.AuthorizedContext, queueName string) (*queue.Counts, error) {
	q, err := s.queue(queueName)
	if err != nil {
		return nil, err
	}
	return q.Counts()
}

// ForceWait moves a delayed or failed job back to the wait list,
// resetting its attempt budget.
func (s BasicService) ForceWait(rc *request.AuthorizedContext, queueName, jobID string) error {
	q, err := s.queue(queueName)
	if err != nil {
		return err
	}

	if err := q.ForceWait(jobID); err != nil {
		return err
	}
	rc.Log.Infof("Moved job %s of queue %s back to wait", jobID, queueName)
	return nil
}
