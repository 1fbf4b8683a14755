package reportgen

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

func TestSummaryFull(t *testing.T) {
	b := &models.FindingsBundle{
		OverallRiskRating: models.SeverityHigh,
		Vulnerabilities: []models.Vulnerability{
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityHigh},
			{Severity: models.SeverityMedium},
			{Severity: models.SeverityLow},
		},
		GasIssues: []models.GasIssue{{}, {}},
		ComplianceResults: map[string]models.ComplianceResult{
			"ERC721": {Standard: "ERC721", Compliant: false},
			"ERC20":  {Standard: "ERC20", Compliant: true},
		},
		AnomalyResult: &models.AnomalyResult{IsAnomaly: true, AnomalyScore: 0.953},
	}

	want := "Overall risk: High. " +
		"Vulnerabilities: 0 critical, 2 high, 1 medium. " +
		"Gas issues: 2. " +
		"Compliance: ERC20: Compliant, ERC721: Non-compliant. " +
		"Anomaly detection: Anomalous (Score: 0.95)."
	assert.Equal(t, want, Summary(b))

	// byte-reproducible
	assert.Equal(t, Summary(b), Summary(b))
}

func TestSummaryEmptyBundle(t *testing.T) {
	b := &models.FindingsBundle{OverallRiskRating: models.SeverityInformational}

	want := "Overall risk: Informational. " +
		"Vulnerabilities: 0 critical, 0 high, 0 medium. " +
		"Gas issues: 0. " +
		"Anomaly detection: Not analyzed."
	assert.Equal(t, want, Summary(b))
}

func TestSummaryNoAnomalies(t *testing.T) {
	b := &models.FindingsBundle{
		OverallRiskRating: models.SeverityInformational,
		AnomalyResult:     &models.AnomalyResult{IsAnomaly: false, AnomalyScore: 0.1},
	}
	assert.Contains(t, Summary(b), "Anomaly detection: No anomalies detected.")
}
