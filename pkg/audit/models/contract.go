package models

import (
	"github.com/jinzhu/gorm"
)

type ContractStatus string

const (
	ContractStatusUploaded  ContractStatus = "uploaded"
	ContractStatusAnalyzing ContractStatus = "analyzing"
	ContractStatusAnalyzed  ContractStatus = "analyzed"
	ContractStatusFailed    ContractStatus = "failed"
)

// Contract status transitions are owned by the analysis pipeline:
// uploaded -> analyzing -> {analyzed, failed}; a failed enqueue reverts
// analyzing -> uploaded.
type Contract struct {
	gorm.Model

	OwnerID uint `gorm:"index"`

	Name            string
	Address         string
	CompilerVersion string
	SourceCode      string `gorm:"type:text"`

	Status ContractStatus `gorm:"index"`
}
