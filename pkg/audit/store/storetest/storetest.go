// Package storetest provides in-memory store doubles for worker and
// service tests.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/solguard/solguard-api/internal/api/apierrors"
	"github.com/solguard/solguard-api/pkg/audit/models"
	"github.com/solguard/solguard-api/pkg/audit/store"
)

// NewStores builds a fully in-memory persistence facade.
func NewStores() *store.Stores {
	reports := &ReportStore{byID: map[uint]*models.Report{}}
	return &store.Stores{
		Contracts: &ContractStore{byID: map[uint]*models.Contract{}},
		Analyzes:  &AnalysisStore{byID: map[uint]*models.Analysis{}, Reports: reports},
		Reports:   reports,
	}
}

type ContractStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.Contract
}

func (s *ContractStore) Create(ctx context.Context, contract *models.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	contract.ID = s.nextID
	contract.CreatedAt = time.Now()
	cp := *contract
	s.byID[contract.ID] = &cp
	return nil
}

func (s *ContractStore) GetByID(ctx context.Context, id uint) (*models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return nil, apierrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *ContractStore) GetForOwner(ctx context.Context, id, ownerID uint) (*models.Contract, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, apierrors.ErrNotFound
	}
	return c, nil
}

func (s *ContractStore) UpdateStatus(ctx context.Context, id uint, status models.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[id]
	if !ok {
		return apierrors.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *ContractStore) ListByOwnerPaginated(ctx context.Context, ownerID uint, offset, limit int) ([]models.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []models.Contract
	for id := s.nextID; id >= 1; id-- {
		if c, ok := s.byID[id]; ok && c.OwnerID == ownerID {
			all = append(all, *c)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type AnalysisStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.Analysis

	// Reports is consulted by ListPrunable when set.
	Reports *ReportStore
}

func (s *AnalysisStore) Create(ctx context.Context, analysis *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	analysis.ID = s.nextID
	analysis.CreatedAt = time.Now()
	cp := *analysis
	s.byID[analysis.ID] = &cp
	return nil
}

func (s *AnalysisStore) GetByID(ctx context.Context, id uint) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, apierrors.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *AnalysisStore) Update(ctx context.Context, analysis *models.Analysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[analysis.ID]; !ok {
		return apierrors.ErrNotFound
	}
	cp := *analysis
	s.byID[analysis.ID] = &cp
	return nil
}

func (s *AnalysisStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.byID, id)
	return nil
}

func (s *AnalysisStore) MostRecentForContract(ctx context.Context, contractID uint) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := s.nextID; id >= 1; id-- {
		if a, ok := s.byID[id]; ok && a.ContractID == contractID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apierrors.ErrNotFound
}

func (s *AnalysisStore) MostRecentCompletedForContract(ctx context.Context, contractID uint) (*models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := s.nextID; id >= 1; id-- {
		a, ok := s.byID[id]
		if ok && a.ContractID == contractID && a.Status == models.AnalysisStatusCompleted {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apierrors.ErrNotFound
}

func (s *AnalysisStore) ListPrunable(ctx context.Context, completedBefore time.Time) ([]models.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Analysis
	for id := uint(1); id <= s.nextID; id++ {
		a, ok := s.byID[id]
		if !ok || a.Status != models.AnalysisStatusCompleted {
			continue
		}
		if a.CompletedAt == nil || !a.CompletedAt.Before(completedBefore) {
			continue
		}
		if s.Reports != nil {
			n, _ := s.Reports.CountByAnalysis(ctx, a.ID)
			if n != 0 {
				continue
			}
		}
		out = append(out, *a)
	}
	return out, nil
}

type ReportStore struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.Report
}

func (s *ReportStore) Create(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	report.ID = s.nextID
	report.CreatedAt = time.Now()
	cp := *report
	s.byID[report.ID] = &cp
	return nil
}

func (s *ReportStore) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, apierrors.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *ReportStore) Update(ctx context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[report.ID]; !ok {
		return apierrors.ErrNotFound
	}
	cp := *report
	s.byID[report.ID] = &cp
	return nil
}

func (s *ReportStore) MostRecentForContract(ctx context.Context, contractID uint) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := s.nextID; id >= 1; id-- {
		if r, ok := s.byID[id]; ok && r.ContractID == contractID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, apierrors.ErrNotFound
}

func (s *ReportStore) ListByContract(ctx context.Context, contractID uint) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Report
	for id := s.nextID; id >= 1; id-- {
		if r, ok := s.byID[id]; ok && r.ContractID == contractID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *ReportStore) DeleteByContract(ctx context.Context, contractID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.byID {
		if r.ContractID == contractID {
			delete(s.byID, id)
		}
	}
	return nil
}

func (s *ReportStore) CountByAnalysis(ctx context.Context, analysisID uint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.byID {
		if r.AnalysisID == analysisID {
			n++
		}
	}
	return n, nil
}
