// Package reportgen renders audit findings into the four report
// formats and builds the stored report summary.
package reportgen

import (
	"time"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// AuditData is everything a renderer needs: contract metadata plus the
// findings bundle of the completed analysis.
type AuditData struct {
	ContractName    string
	ContractAddress string
	CompilerVersion string
	SourceCode      string

	AuditedAt time.Time
	Auditor   string

	Bundle *models.FindingsBundle
}

const disclaimerText = "This report is provided for informational purposes only and does not " +
	"constitute a guarantee of the absence of vulnerabilities. Automated analysis " +
	"cannot replace a manual security review. The authors accept no liability for " +
	"losses arising from the use of the audited contract."

// vulnerabilitiesBySeverity groups vulnerabilities preserving input
// order within each group. Severities with no findings are absent.
func vulnerabilitiesBySeverity(vulns []models.Vulnerability) map[models.Severity][]models.Vulnerability {
	groups := map[models.Severity][]models.Vulnerability{}
	for _, v := range vulns {
		groups[v.Severity] = append(groups[v.Severity], v)
	}
	return groups
}

func severityCounts(vulns []models.Vulnerability) map[models.Severity]int {
	counts := map[models.Severity]int{}
	for _, v := range vulns {
		counts[v.Severity]++
	}
	return counts
}
