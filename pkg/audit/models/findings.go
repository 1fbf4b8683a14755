package models

// Severity values are ordered: Critical is the highest.
type Severity string

const (
	SeverityCritical      Severity = "Critical"
	SeverityHigh          Severity = "High"
	SeverityMedium        Severity = "Medium"
	SeverityLow           Severity = "Low"
	SeverityInformational Severity = "Informational"
)

// SeveritiesOrdered lists severities from highest to lowest; renderers
// rely on this order for section grouping.
var SeveritiesOrdered = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInformational,
}

var severityRanks = map[Severity]int{
	SeverityCritical:      4,
	SeverityHigh:          3,
	SeverityMedium:        2,
	SeverityLow:           1,
	SeverityInformational: 0,
}

func (s Severity) Rank() int {
	return severityRanks[s]
}

// MaxSeverity returns the highest severity present among vulnerabilities,
// Informational when there are none.
func MaxSeverity(vulns []Vulnerability) Severity {
	max := SeverityInformational
	for _, v := range vulns {
		if v.Severity.Rank() > max.Rank() {
			max = v.Severity
		}
	}
	return max
}

type Location struct {
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
	File   string `json:"file,omitempty"`
}

type Vulnerability struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Severity       Severity `json:"severity"`
	Location       Location `json:"location"`
	Details        string   `json:"details,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
}

type GasIssue struct {
	ID                string   `json:"id"`
	Description       string   `json:"description"`
	Location          Location `json:"location"`
	EstimatedGasSaved string   `json:"estimatedGasSaved,omitempty"`
	Recommendation    string   `json:"recommendation,omitempty"`
}

type ComplianceResult struct {
	Standard            string   `json:"standard"`
	Compliant           bool     `json:"compliant"`
	MissingRequirements []string `json:"missingRequirements,omitempty"`
	Recommendations     []string `json:"recommendations,omitempty"`
}

type AnomalyResult struct {
	IsAnomaly       bool     `json:"isAnomaly"`
	AnomalyScore    float64  `json:"anomalyScore"`
	Description     string   `json:"description,omitempty"`
	Factors         []string `json:"factors,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// FindingsBundle is the aggregate result of one analysis run.
type FindingsBundle struct {
	Vulnerabilities   []Vulnerability             `json:"vulnerabilities"`
	GasIssues         []GasIssue                  `json:"gasIssues"`
	ComplianceResults map[string]ComplianceResult `json:"complianceResults"`
	AnomalyResult     *AnomalyResult              `json:"anomalyResult,omitempty"`
	OverallRiskRating Severity                    `json:"overallRiskRating"`
	Recommendations   []Recommendation            `json:"recommendations"`
}
