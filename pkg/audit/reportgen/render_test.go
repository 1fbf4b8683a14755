package reportgen

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

func testAuditData() *AuditData {
	return &AuditData{
		ContractName:    "Token",
		ContractAddress: "0xabc",
		CompilerVersion: "0.8.19",
		SourceCode:      "contract Token {}",
		AuditedAt:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Auditor:         "SolGuard",
		Bundle: &models.FindingsBundle{
			OverallRiskRating: models.SeverityCritical,
			Vulnerabilities: []models.Vulnerability{
				{ID: "SG-1", Name: "Reentrancy", Severity: models.SeverityCritical,
					Description: "external call before state update", Location: models.Location{Line: 42}},
				{ID: "SG-2", Name: "Unchecked send", Severity: models.SeverityLow,
					Description: "return value ignored", Location: models.Location{Line: 10}},
			},
			GasIssues: []models.GasIssue{
				{ID: "G-1", Description: "use calldata", Location: models.Location{Line: 7}, EstimatedGasSaved: "300"},
			},
			ComplianceResults: map[string]models.ComplianceResult{
				"ERC20": {Standard: "ERC20", Compliant: false, MissingRequirements: []string{"decimals()"}},
			},
			AnomalyResult: &models.AnomalyResult{IsAnomaly: true, AnomalyScore: 0.97, Factors: []string{"unusual opcode mix"}},
			Recommendations: []models.Recommendation{
				models.PlainRecommendation("optimize gas at line 7: use calldata"),
				{Structured: &models.StructuredRecommendation{Description: "add guard", Suggestion: "use a mutex"}},
			},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	out, err := NewRenderer().Render(models.FormatMarkdown, testAuditData())
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "# Security Audit Report: Token")
	assert.Contains(t, md, "### Critical")
	assert.Contains(t, md, "#### Reentrancy (SG-1)")
	assert.Contains(t, md, "### Low")
	// empty severity sections are omitted
	assert.NotContains(t, md, "### High")
	assert.NotContains(t, md, "### Medium")
	assert.Contains(t, md, "```solidity\ncontract Token {}\n```")
	assert.Contains(t, md, "Anomalous (Score: 0.97)")
	assert.Contains(t, md, "add guard - use a mutex")
	assert.Contains(t, md, disclaimerText)
}

func TestRenderMarkdownEmptyFindings(t *testing.T) {
	data := testAuditData()
	data.Bundle = &models.FindingsBundle{OverallRiskRating: models.SeverityInformational}

	out, err := NewRenderer().Render(models.FormatMarkdown, data)
	require.NoError(t, err)
	md := string(out)

	assert.Contains(t, md, "No vulnerabilities were detected.")
	assert.Contains(t, md, "No gas issues were detected.")
	assert.Contains(t, md, "No compliance standards were checked.")
	assert.NotContains(t, md, "## Anomaly Detection")
}

func TestRenderHTML(t *testing.T) {
	data := testAuditData()
	data.SourceCode = "contract C { /* a < b */ }"

	out, err := NewRenderer().Render(models.FormatHTML, data)
	require.NoError(t, err)
	htm := string(out)

	assert.True(t, strings.HasPrefix(htm, "<!DOCTYPE html>"))
	assert.Contains(t, htm, "Security Audit Report: Token")
	assert.Contains(t, htm, severityBadge(models.SeverityCritical))
	assert.Contains(t, htm, "a &lt; b")
	assert.Contains(t, htm, "add guard - use a mutex")
}

func TestRenderPDF(t *testing.T) {
	out, err := NewRenderer().Render(models.FormatPDF, testAuditData())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestRenderJSONKeepsStructure(t *testing.T) {
	out, err := NewRenderer().Render(models.FormatJSON, testAuditData())
	require.NoError(t, err)

	var doc struct {
		Meta struct {
			ContractName string `json:"contractName"`
			RiskRating   string `json:"riskRating"`
		} `json:"meta"`
		Findings struct {
			Vulnerabilities []models.Vulnerability `json:"vulnerabilities"`
			AnomalyResults  *models.AnomalyResult  `json:"anomalyResults"`
		} `json:"findings"`
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(out, &doc))

	assert.Equal(t, "Token", doc.Meta.ContractName)
	assert.Equal(t, "Critical", doc.Meta.RiskRating)
	require.Len(t, doc.Findings.Vulnerabilities, 2)
	require.NotNil(t, doc.Findings.AnomalyResults)

	// first recommendation stays a plain string, second stays an object
	require.Len(t, doc.Recommendations, 2)
	assert.True(t, strings.HasPrefix(string(doc.Recommendations[0]), `"`))
	assert.True(t, strings.HasPrefix(string(doc.Recommendations[1]), "{"))
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := NewRenderer().Render(models.ReportFormat("docx"), testAuditData())
	assert.Error(t, err)
}
