package reportgen

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

type jsonMeta struct {
	ContractName    string    `json:"contractName"`
	ContractAddress string    `json:"contractAddress,omitempty"`
	CompilerVersion string    `json:"compilerVersion,omitempty"`
	AuditedAt       time.Time `json:"auditedAt"`
	Auditor         string    `json:"auditor"`
	RiskRating      string    `json:"riskRating"`
}

type jsonFindings struct {
	Vulnerabilities   []models.Vulnerability             `json:"vulnerabilities"`
	GasIssues         []models.GasIssue                  `json:"gasIssues"`
	ComplianceResults map[string]models.ComplianceResult `json:"complianceResults"`
	AnomalyResults    *models.AnomalyResult              `json:"anomalyResults"`
}

// renderJSON is the only format keeping full structured data:
// recommendations keep their original shape instead of being
// flattened to prose.
func (r Renderer) renderJSON(data *AuditData) ([]byte, error) {
	b := data.Bundle

	doc := struct {
		Meta            jsonMeta                `json:"meta"`
		Findings        jsonFindings            `json:"findings"`
		Recommendations []models.Recommendation `json:"recommendations"`
	}{
		Meta: jsonMeta{
			ContractName:    data.ContractName,
			ContractAddress: data.ContractAddress,
			CompilerVersion: data.CompilerVersion,
			AuditedAt:       data.AuditedAt,
			Auditor:         data.Auditor,
			RiskRating:      string(b.OverallRiskRating),
		},
		Findings: jsonFindings{
			Vulnerabilities:   b.Vulnerabilities,
			GasIssues:         b.GasIssues,
			ComplianceResults: b.ComplianceResults,
			AnomalyResults:    b.AnomalyResult,
		},
		Recommendations: b.Recommendations,
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal json report")
	}
	return out, nil
}
