package models

import (
	"encoding/json"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/pkg/errors"
)

type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusProcessing AnalysisStatus = "processing"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// AnalysisOptions selects which analyzers to run.
type AnalysisOptions struct {
	SecurityScan        bool     `json:"securityScan"`
	GasOptimization     bool     `json:"gasOptimization"`
	ComplianceCheck     bool     `json:"complianceCheck"`
	AnomalyDetection    bool     `json:"anomalyDetection"`
	ComplianceStandards []string `json:"complianceStandards,omitempty"`
}

type Analysis struct {
	gorm.Model

	ContractID uint   `gorm:"index"`
	GUID       string `gorm:"index"`

	Status AnalysisStatus `gorm:"index"`

	// ResultJSON holds the FindingsBundle once the run completes.
	ResultJSON json.RawMessage `gorm:"type:text"`
	Error      string

	StartedAt   time.Time
	CompletedAt *time.Time
}

func (Analysis) TableName() string {
	return "analyzes"
}

func (a *Analysis) Bundle() (*FindingsBundle, error) {
	if len(a.ResultJSON) == 0 {
		return nil, nil
	}

	var b FindingsBundle
	if err := json.Unmarshal(a.ResultJSON, &b); err != nil {
		return nil, errors.Wrapf(err, "can't unmarshal findings of analysis %d", a.ID)
	}

	return &b, nil
}

func (a *Analysis) SetBundle(b *FindingsBundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return errors.Wrapf(err, "can't marshal findings of analysis %d", a.ID)
	}

	a.ResultJSON = data
	return nil
}
