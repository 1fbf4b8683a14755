package reportgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

// Summary builds the one-paragraph digest stored on the report. It is
// pure: the same bundle always yields the same bytes.
func Summary(b *models.FindingsBundle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Overall risk: %s. ", b.OverallRiskRating)

	counts := severityCounts(b.Vulnerabilities)
	fmt.Fprintf(&sb, "Vulnerabilities: %d critical, %d high, %d medium. ",
		counts[models.SeverityCritical], counts[models.SeverityHigh], counts[models.SeverityMedium])

	fmt.Fprintf(&sb, "Gas issues: %d. ", len(b.GasIssues))

	if len(b.ComplianceResults) != 0 {
		standards := make([]string, 0, len(b.ComplianceResults))
		for name := range b.ComplianceResults {
			standards = append(standards, name)
		}
		sort.Strings(standards)

		tokens := make([]string, 0, len(standards))
		for _, name := range standards {
			state := "Non-compliant"
			if b.ComplianceResults[name].Compliant {
				state = "Compliant"
			}
			tokens = append(tokens, fmt.Sprintf("%s: %s", name, state))
		}
		fmt.Fprintf(&sb, "Compliance: %s. ", strings.Join(tokens, ", "))
	}

	switch {
	case b.AnomalyResult == nil:
		sb.WriteString("Anomaly detection: Not analyzed.")
	case b.AnomalyResult.IsAnomaly:
		fmt.Fprintf(&sb, "Anomaly detection: Anomalous (Score: %.2f).", b.AnomalyResult.AnomalyScore)
	default:
		sb.WriteString("Anomaly detection: No anomalies detected.")
	}

	return sb.String()
}
