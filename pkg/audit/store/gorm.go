package store

import (
	"context"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/pkg/audit/models"
)

// NewGorm builds the full persistence facade over one gorm connection.
func NewGorm(db *gorm.DB) *Stores {
	return &Stores{
		Contracts: &gormContractStore{db: db},
		Analyzes:  &gormAnalysisStore{db: db},
		Reports:   &gormReportStore{db: db},
	}
}

type gormContractStore struct {
	db *gorm.DB
}

func (s gormContractStore) Create(ctx context.Context, contract *models.Contract) error {
	if err := s.db.Create(contract).Error; err != nil {
		return errors.Wrap(err, "can't create contract")
	}
	return nil
}

func (s gormContractStore) GetByID(ctx context.Context, id uint) (*models.Contract, error) {
	var c models.Contract
	if err := s.db.First(&c, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch contract %d", id)
	}
	return &c, nil
}

func (s gormContractStore) GetForOwner(ctx context.Context, id, ownerID uint) (*models.Contract, error) {
	var c models.Contract
	err := s.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch contract %d for owner %d", id, ownerID)
	}
	return &c, nil
}

func (s gormContractStore) UpdateStatus(ctx context.Context, id uint, status models.ContractStatus) error {
	err := s.db.Model(&models.Contract{}).Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return errors.Wrapf(err, "can't update status of contract %d to %s", id, status)
	}
	return nil
}

func (s gormContractStore) ListByOwnerPaginated(ctx context.Context, ownerID uint, offset, limit int) ([]models.Contract, error) {
	var contracts []models.Contract
	err := s.db.Where("owner_id = ?", ownerID).
		Order("id desc").Offset(offset).Limit(limit).
		Find(&contracts).Error
	if err != nil {
		return nil, errors.Wrapf(err, "can't list contracts of owner %d", ownerID)
	}
	return contracts, nil
}

type gormAnalysisStore struct {
	db *gorm.DB
}

func (s gormAnalysisStore) Create(ctx context.Context, analysis *models.Analysis) error {
	if err := s.db.Create(analysis).Error; err != nil {
		return errors.Wrap(err, "can't create analysis")
	}
	return nil
}

func (s gormAnalysisStore) GetByID(ctx context.Context, id uint) (*models.Analysis, error) {
	var a models.Analysis
	if err := s.db.First(&a, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch analysis %d", id)
	}
	return &a, nil
}

func (s gormAnalysisStore) Update(ctx context.Context, analysis *models.Analysis) error {
	if err := s.db.Save(analysis).Error; err != nil {
		return errors.Wrapf(err, "can't save analysis %d", analysis.ID)
	}
	return nil
}

func (s gormAnalysisStore) Delete(ctx context.Context, id uint) error {
	if err := s.db.Delete(&models.Analysis{}, "id = ?", id).Error; err != nil {
		return errors.Wrapf(err, "can't delete analysis %d", id)
	}
	return nil
}

func (s gormAnalysisStore) MostRecentForContract(ctx context.Context, contractID uint) (*models.Analysis, error) {
	var a models.Analysis
	err := s.db.Where("contract_id = ?", contractID).
		Order("id desc").First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch latest analysis of contract %d", contractID)
	}
	return &a, nil
}

func (s gormAnalysisStore) MostRecentCompletedForContract(ctx context.Context, contractID uint) (*models.Analysis, error) {
	var a models.Analysis
	err := s.db.Where("contract_id = ? AND status = ?", contractID, models.AnalysisStatusCompleted).
		Order("id desc").First(&a).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch latest completed analysis of contract %d", contractID)
	}
	return &a, nil
}

func (s gormAnalysisStore) ListPrunable(ctx context.Context, completedBefore time.Time) ([]models.Analysis, error) {
	var analyzes []models.Analysis
	err := s.db.Where("status = ? AND completed_at < ?", models.AnalysisStatusCompleted, completedBefore).
		Where("NOT EXISTS (SELECT 1 FROM reports WHERE reports.analysis_id = analyzes.id AND reports.deleted_at IS NULL)").
		Find(&analyzes).Error
	if err != nil {
		return nil, errors.Wrap(err, "can't list prunable analyzes")
	}
	return analyzes, nil
}

type gormReportStore struct {
	db *gorm.DB
}

func (s gormReportStore) Create(ctx context.Context, report *models.Report) error {
	if err := s.db.Create(report).Error; err != nil {
		return errors.Wrap(err, "can't create report")
	}
	return nil
}

func (s gormReportStore) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	var r models.Report
	if err := s.db.First(&r, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch report %d", id)
	}
	return &r, nil
}

func (s gormReportStore) Update(ctx context.Context, report *models.Report) error {
	if err := s.db.Save(report).Error; err != nil {
		return errors.Wrapf(err, "can't save report %d", report.ID)
	}
	return nil
}

func (s gormReportStore) MostRecentForContract(ctx context.Context, contractID uint) (*models.Report, error) {
	var r models.Report
	err := s.db.Where("contract_id = ?", contractID).
		Order("id desc").First(&r).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apierrors.ErrNotFound
		}
		return nil, errors.Wrapf(err, "can't fetch latest report of contract %d", contractID)
	}
	return &r, nil
}

func (s gormReportStore) ListByContract(ctx context.Context, contractID uint) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.Where("contract_id = ?", contractID).
		Order("id desc").Find(&reports).Error
	if err != nil {
		return nil, errors.Wrapf(err, "can't list reports of contract %d", contractID)
	}
	return reports, nil
}

func (s gormReportStore) DeleteByContract(ctx context.Context, contractID uint) error {
	err := s.db.Delete(&models.Report{}, "contract_id = ?", contractID).Error
	if err != nil {
		return errors.Wrapf(err, "can't delete reports of contract %d", contractID)
	}
	return nil
}

func (s gormReportStore) CountByAnalysis(ctx context.Context, analysisID uint) (int, error) {
	var n int
	err := s.db.Model(&models.Report{}).
		Where("analysis_id = ?", analysisID).Count(&n).Error
	if err != nil {
		return 0, errors.Wrapf(err, "can't count reports of analysis %d", analysisID)
	}
	return n, nil
}
