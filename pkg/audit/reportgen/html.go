package reportgen

import (
	"fmt"
	"html"
	"strings"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

var severityColors = map[models.Severity]string{
	models.SeverityCritical:      "#b71c1c",
	models.SeverityHigh:          "#e65100",
	models.SeverityMedium:        "#f9a825",
	models.SeverityLow:           "#1565c0",
	models.SeverityInformational: "#616161",
}

func severityBadge(sev models.Severity) string {
	return fmt.Sprintf(
		`<span style="background:%s;color:#fff;padding:2px 8px;border-radius:3px;font-size:12px">%s</span>`,
		severityColors[sev], sev)
}

func (r Renderer) renderHTML(data *AuditData) ([]byte, error) {
	b := data.Bundle
	var sb strings.Builder
	esc := html.EscapeString

	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "<title>Security Audit Report: %s</title>\n", esc(data.ContractName))
	sb.WriteString("</head>\n<body style=\"font-family:Helvetica,Arial,sans-serif;max-width:900px;margin:0 auto;padding:24px;color:#212121\">\n")

	fmt.Fprintf(&sb, "<h1>Security Audit Report: %s</h1>\n", esc(data.ContractName))
	sb.WriteString("<table style=\"border-collapse:collapse\">\n")
	if data.ContractAddress != "" {
		fmt.Fprintf(&sb, "<tr><td style=\"padding:2px 12px 2px 0\"><b>Address</b></td><td>%s</td></tr>\n", esc(data.ContractAddress))
	}
	if data.CompilerVersion != "" {
		fmt.Fprintf(&sb, "<tr><td style=\"padding:2px 12px 2px 0\"><b>Compiler</b></td><td>%s</td></tr>\n", esc(data.CompilerVersion))
	}
	fmt.Fprintf(&sb, "<tr><td style=\"padding:2px 12px 2px 0\"><b>Date</b></td><td>%s</td></tr>\n", data.AuditedAt.Format("2006-01-02"))
	fmt.Fprintf(&sb, "<tr><td style=\"padding:2px 12px 2px 0\"><b>Auditor</b></td><td>%s</td></tr>\n", esc(data.Auditor))
	sb.WriteString("</table>\n")

	sb.WriteString("<h2>Executive Summary</h2>\n")
	fmt.Fprintf(&sb, "<p>Overall risk: %s</p>\n", severityBadge(b.OverallRiskRating))
	fmt.Fprintf(&sb, "<p>%s</p>\n", esc(Summary(b)))

	sb.WriteString("<h2>Vulnerabilities</h2>\n")
	if len(b.Vulnerabilities) == 0 {
		sb.WriteString("<p>No vulnerabilities were detected.</p>\n")
	} else {
		groups := vulnerabilitiesBySeverity(b.Vulnerabilities)
		for _, sev := range models.SeveritiesOrdered {
			vulns := groups[sev]
			if len(vulns) == 0 {
				continue
			}
			fmt.Fprintf(&sb, "<h3>%s</h3>\n", severityBadge(sev))
			sb.WriteString("<table style=\"border-collapse:collapse;width:100%\">\n")
			sb.WriteString("<tr><th style=\"border:1px solid #ddd;padding:6px;text-align:left\">ID</th>" +
				"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Name</th>" +
				"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Line</th>" +
				"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Description</th></tr>\n")
			for _, v := range vulns {
				fmt.Fprintf(&sb, "<tr><td style=\"border:1px solid #ddd;padding:6px\">%s</td>"+
					"<td style=\"border:1px solid #ddd;padding:6px\">%s</td>"+
					"<td style=\"border:1px solid #ddd;padding:6px\">%d</td>"+
					"<td style=\"border:1px solid #ddd;padding:6px\">%s</td></tr>\n",
					esc(v.ID), esc(v.Name), v.Location.Line, esc(v.Description))
			}
			sb.WriteString("</table>\n")
		}
	}

	sb.WriteString("<h2>Gas Optimization</h2>\n")
	if len(b.GasIssues) == 0 {
		sb.WriteString("<p>No gas issues were detected.</p>\n")
	} else {
		sb.WriteString("<table style=\"border-collapse:collapse;width:100%\">\n")
		sb.WriteString("<tr><th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Line</th>" +
			"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Description</th>" +
			"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Est. Savings</th></tr>\n")
		for _, g := range b.GasIssues {
			fmt.Fprintf(&sb, "<tr><td style=\"border:1px solid #ddd;padding:6px\">%d</td>"+
				"<td style=\"border:1px solid #ddd;padding:6px\">%s</td>"+
				"<td style=\"border:1px solid #ddd;padding:6px\">%s</td></tr>\n",
				g.Location.Line, esc(g.Description), esc(g.EstimatedGasSaved))
		}
		sb.WriteString("</table>\n")
	}

	sb.WriteString("<h2>Compliance</h2>\n")
	if len(b.ComplianceResults) == 0 {
		sb.WriteString("<p>No compliance standards were checked.</p>\n")
	} else {
		sb.WriteString("<table style=\"border-collapse:collapse;width:100%\">\n")
		sb.WriteString("<tr><th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Standard</th>" +
			"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Status</th>" +
			"<th style=\"border:1px solid #ddd;padding:6px;text-align:left\">Missing Requirements</th></tr>\n")
		for _, name := range sortedStandards(b.ComplianceResults) {
			res := b.ComplianceResults[name]
			state := "Non-compliant"
			if res.Compliant {
				state = "Compliant"
			}
			fmt.Fprintf(&sb, "<tr><td style=\"border:1px solid #ddd;padding:6px\">%s</td>"+
				"<td style=\"border:1px solid #ddd;padding:6px\">%s</td>"+
				"<td style=\"border:1px solid #ddd;padding:6px\">%s</td></tr>\n",
				esc(name), state, esc(strings.Join(res.MissingRequirements, "; ")))
		}
		sb.WriteString("</table>\n")
	}

	if b.AnomalyResult != nil {
		sb.WriteString("<h2>Anomaly Detection</h2>\n")
		a := b.AnomalyResult
		if a.IsAnomaly {
			fmt.Fprintf(&sb, "<p>Anomalous (Score: %.2f). %s</p>\n", a.AnomalyScore, esc(a.Description))
		} else {
			sb.WriteString("<p>No anomalies detected.</p>\n")
		}
		if len(a.Factors) != 0 {
			sb.WriteString("<ul>\n")
			for _, f := range a.Factors {
				fmt.Fprintf(&sb, "<li>%s</li>\n", esc(f))
			}
			sb.WriteString("</ul>\n")
		}
	}

	sb.WriteString("<h2>Recommendations</h2>\n")
	if len(b.Recommendations) == 0 {
		sb.WriteString("<p>No recommendations.</p>\n")
	} else {
		sb.WriteString("<ol>\n")
		for _, rec := range b.Recommendations {
			fmt.Fprintf(&sb, "<li>%s</li>\n", esc(rec.DisplayText()))
		}
		sb.WriteString("</ol>\n")
	}

	sb.WriteString("<h2>Source Code</h2>\n")
	fmt.Fprintf(&sb, "<pre style=\"background:#f5f5f5;padding:12px;overflow-x:auto\"><code>%s</code></pre>\n", esc(data.SourceCode))

	sb.WriteString("<h2>Disclaimer</h2>\n")
	fmt.Fprintf(&sb, "<p style=\"font-size:12px;color:#757575\">%s</p>\n", esc(disclaimerText))

	sb.WriteString("</body>\n</html>\n")
	return []byte(sb.String()), nil
}
