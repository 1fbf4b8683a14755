package store

import (
	"context"
	"time"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// The stores are the only persistence surface the domain code sees;
// the backing document store stays behind them.

type ContractStore interface {
	Create(ctx context.Context, contract *models.Contract) error
	GetByID(ctx context.Context, id uint) (*models.Contract, error)

	// GetForOwner returns ErrNotFound for both an absent contract and
	// a contract owned by someone else: ownership is not disclosed.
	GetForOwner(ctx context.Context, id, ownerID uint) (*models.Contract, error)

	UpdateStatus(ctx context.Context, id uint, status models.ContractStatus) error
	ListByOwnerPaginated(ctx context.Context, ownerID uint, offset, limit int) ([]models.Contract, error)
}

type AnalysisStore interface {
	Create(ctx context.Context, analysis *models.Analysis) error
	GetByID(ctx context.Context, id uint) (*models.Analysis, error)
	Update(ctx context.Context, analysis *models.Analysis) error
	Delete(ctx context.Context, id uint) error

	MostRecentForContract(ctx context.Context, contractID uint) (*models.Analysis, error)
	MostRecentCompletedForContract(ctx context.Context, contractID uint) (*models.Analysis, error)

	// ListPrunable returns completed analyzes finished before the
	// cutoff with zero referencing reports (anti-join).
	ListPrunable(ctx context.Context, completedBefore time.Time) ([]models.Analysis, error)
}

type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	Update(ctx context.Context, report *models.Report) error

	MostRecentForContract(ctx context.Context, contractID uint) (*models.Report, error)
	ListByContract(ctx context.Context, contractID uint) ([]models.Report, error)
	DeleteByContract(ctx context.Context, contractID uint) error
	CountByAnalysis(ctx context.Context, analysisID uint) (int, error)
}

type Stores struct {
	Contracts ContractStore
	Analyzes  AnalysisStore
	Reports   ReportStore
}
