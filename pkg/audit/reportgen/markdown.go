package reportgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

func (r Renderer) renderMarkdown(data *AuditData) ([]byte, error) {
	b := data.Bundle
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Security Audit Report: %s\n\n", data.ContractName)
	if data.ContractAddress != "" {
		fmt.Fprintf(&sb, "- **Address:** %s\n", data.ContractAddress)
	}
	if data.CompilerVersion != "" {
		fmt.Fprintf(&sb, "- **Compiler:** %s\n", data.CompilerVersion)
	}
	fmt.Fprintf(&sb, "- **Date:** %s\n", data.AuditedAt.Format("2006-01-02"))
	fmt.Fprintf(&sb, "- **Auditor:** %s\n\n", data.Auditor)

	sb.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&sb, "%s\n\n", Summary(b))

	sb.WriteString("## Vulnerabilities\n\n")
	if len(b.Vulnerabilities) == 0 {
		sb.WriteString("No vulnerabilities were detected.\n\n")
	} else {
		groups := vulnerabilitiesBySeverity(b.Vulnerabilities)
		for _, sev := range models.SeveritiesOrdered {
			vulns := groups[sev]
			if len(vulns) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "### %s\n\n", sev)
			for _, v := range vulns {
				fmt.Fprintf(&sb, "#### %s (%s)\n\n", v.Name, v.ID)
				fmt.Fprintf(&sb, "%s\n\n", v.Description)
				fmt.Fprintf(&sb, "- **Location:** line %d\n", v.Location.Line)
				if v.Details != "" {
					fmt.Fprintf(&sb, "- **Details:** %s\n", v.Details)
				}
				if v.Recommendation != "" {
					fmt.Fprintf(&sb, "- **Recommendation:** %s\n", v.Recommendation)
				}
				sb.WriteString("\n")
			}
		}
	}

	sb.WriteString("## Gas Optimization\n\n")
	if len(b.GasIssues) == 0 {
		sb.WriteString("No gas issues were detected.\n\n")
	} else {
		for _, g := range b.GasIssues {
			fmt.Fprintf(&sb, "- Line %d: %s", g.Location.Line, g.Description)
			if g.EstimatedGasSaved != "" {
				fmt.Fprintf(&sb, " (est. savings: %s)", g.EstimatedGasSaved)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Compliance\n\n")
	if len(b.ComplianceResults) == 0 {
		sb.WriteString("No compliance standards were checked.\n\n")
	} else {
		for _, name := range sortedStandards(b.ComplianceResults) {
			res := b.ComplianceResults[name]
			state := "Non-compliant"
			if res.Compliant {
				state = "Compliant"
			}
			fmt.Fprintf(&sb, "### %s: %s\n\n", name, state)
			for _, req := range res.MissingRequirements {
				fmt.Fprintf(&sb, "- Missing: %s\n", req)
			}
			if len(res.MissingRequirements) != 0 {
				sb.WriteString("\n")
			}
		}
	}

	if b.AnomalyResult != nil {
		sb.WriteString("## Anomaly Detection\n\n")
		a := b.AnomalyResult
		if a.IsAnomaly {
			fmt.Fprintf(&sb, "Anomalous (Score: %.2f). %s\n\n", a.AnomalyScore, a.Description)
		} else {
			sb.WriteString("No anomalies detected.\n\n")
		}
		for _, f := range a.Factors {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		if len(a.Factors) != 0 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## Recommendations\n\n")
	if len(b.Recommendations) == 0 {
		sb.WriteString("No recommendations.\n\n")
	} else {
		for i, rec := range b.Recommendations {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, rec.DisplayText())
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Source Code\n\n")
	fmt.Fprintf(&sb, "```solidity\n%s\n```\n\n", data.SourceCode)

	sb.WriteString("## Disclaimer\n\n")
	fmt.Fprintf(&sb, "%s\n", disclaimerText)

	return []byte(sb.String()), nil
}

func sortedStandards(results map[string]models.ComplianceResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
