package analysis

import (
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/pkg/audit/analyzers"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/processing"
	"github.com/solguard/solguard-api/pkg/audit/request"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

type StartPayload struct {
	Options models.AnalysisOptions `json:"options"`
}

type Status struct {
	AnalysisID uint                   `json:"analysisId"`
	GUID       string                 `json:"guid"`
	Status     models.AnalysisStatus  `json:"status"`
	Findings   *models.FindingsBundle `json:"findings,omitempty"`
	Error      string                 `json:"error,omitempty"`

	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type Service interface {
	//url:/v1/contracts/{contractid}/analyzes method:POST
	Start(rc *request.AuthorizedContext, contractID uint, payload *StartPayload) (*Status, error)

	//url:/v1/contracts/{contractid}/analyzes
	GetStatus(rc *request.AuthorizedContext, contractID uint) (*Status, error)
}

type BasicService struct {
	Stores   *store.Stores
	Producer *processing.Producer
	Anomaly  analyzers.AnomalyDetector
}

// Start validates the request, creates a pending analysis and enqueues
// the job. An unhealthy anomaly detector silently disables anomaly
// detection for this run instead of rejecting the request.
func (s BasicService) Start(rc *request.AuthorizedContext, contractID uint, payload *StartPayload) (*Status, error) {
	contract, err := s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID)
	if err != nil {
		return nil, err
	}

	if contract.SourceCode == "" {
		return nil, errors.Wrap(apierrors.ErrValidation, "contract has no source code")
	}

	opts := payload.Options
	if opts.AnomalyDetection && s.Anomaly != nil {
		if herr := s.Anomaly.HealthCheck(rc.Ctx); herr != nil {
			rc.Log.Warnf("Anomaly detector is unhealthy, disabling anomaly detection: %s", herr)
			opts.AnomalyDetection = false
		}
	}

	a := &models.Analysis{
		ContractID: contract.ID,
		GUID:       uuid.NewV4().String(),
		Status:     models.AnalysisStatusPending,
		StartedAt:  time.Now(),
	}
	if err = s.Stores.Analyzes.Create(rc.Ctx, a); err != nil {
		return nil, err
	}

	if err = s.Stores.Contracts.UpdateStatus(rc.Ctx, contract.ID, models.ContractStatusAnalyzing); err != nil {
		return nil, err
	}

	if err = s.Producer.Put(rc.Ctx, a.ID, contract.ID, opts); err != nil {
		// keep the failed row for diagnostics, revert the contract
		now := time.Now()
		a.Status = models.AnalysisStatusFailed
		a.Error = err.Error()
		a.CompletedAt = &now
		if uerr := s.Stores.Analyzes.Update(rc.Ctx, a); uerr != nil {
			rc.Log.Errorf("Can't mark analysis %d failed after enqueue error: %s", a.ID, uerr)
		}
		if uerr := s.Stores.Contracts.UpdateStatus(rc.Ctx, contract.ID, models.ContractStatusUploaded); uerr != nil {
			rc.Log.Errorf("Can't revert status of contract %d after enqueue error: %s", contract.ID, uerr)
		}
		return nil, &apierrors.QueueError{Err: err}
	}

	rc.Log.Infof("Enqueued analysis %d for contract %d", a.ID, contract.ID)
	return statusOf(a)
}

func (s BasicService) GetStatus(rc *request.AuthorizedContext, contractID uint) (*Status, error) {
	if _, err := s.Stores.Contracts.GetForOwner(rc.Ctx, contractID, rc.UserID); err != nil {
		return nil, err
	}

	a, err := s.Stores.Analyzes.MostRecentForContract(rc.Ctx, contractID)
	if err != nil {
		return nil, err
	}
	return statusOf(a)
}

func statusOf(a *models.Analysis) (*Status, error) {
	bundle, err := a.Bundle()
	if err != nil {
		return nil, err
	}
	return &Status{
		AnalysisID:  a.ID,
		GUID:        a.GUID,
		Status:      a.Status,
		Findings:    bundle,
		Error:       a.Error,
		StartedAt:   a.StartedAt,
		CompletedAt: a.CompletedAt,
	}, nil
}
