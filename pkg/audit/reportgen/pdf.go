package reportgen

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/solguard/solguard-api/pkg/audit/models"
)

func (r Renderer) renderPDF(data *AuditData) ([]byte, error) {
	b := data.Bundle

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, fmt.Sprintf("Security Audit Report: %s", data.ContractName), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	if data.ContractAddress != "" {
		pdf.MultiCell(0, 5, fmt.Sprintf("Address: %s", data.ContractAddress), "", "L", false)
	}
	if data.CompilerVersion != "" {
		pdf.MultiCell(0, 5, fmt.Sprintf("Compiler: %s", data.CompilerVersion), "", "L", false)
	}
	pdf.MultiCell(0, 5, fmt.Sprintf("Date: %s", data.AuditedAt.Format("2006-01-02")), "", "L", false)
	pdf.MultiCell(0, 5, fmt.Sprintf("Auditor: %s", data.Auditor), "", "L", false)

	pdfSection(pdf, "Executive Summary")
	pdfText(pdf, Summary(b))

	pdfSection(pdf, "Vulnerabilities")
	if len(b.Vulnerabilities) == 0 {
		pdfText(pdf, "No vulnerabilities were detected.")
	} else {
		groups := vulnerabilitiesBySeverity(b.Vulnerabilities)
		for _, sev := range models.SeveritiesOrdered {
			vulns := groups[sev]
			if len(vulns) == 0 {
				continue
			}
			pdfSubsection(pdf, string(sev))
			for _, v := range vulns {
				pdf.SetFont("Helvetica", "B", 10)
				pdf.MultiCell(0, 5, fmt.Sprintf("%s (%s), line %d", v.Name, v.ID, v.Location.Line), "", "L", false)
				pdf.SetFont("Helvetica", "", 10)
				pdf.MultiCell(0, 5, v.Description, "", "L", false)
				if v.Recommendation != "" {
					pdf.MultiCell(0, 5, fmt.Sprintf("Recommendation: %s", v.Recommendation), "", "L", false)
				}
				pdf.Ln(2)
			}
		}
	}

	pdfSection(pdf, "Gas Optimization")
	if len(b.GasIssues) == 0 {
		pdfText(pdf, "No gas issues were detected.")
	} else {
		for _, g := range b.GasIssues {
			line := fmt.Sprintf("Line %d: %s", g.Location.Line, g.Description)
			if g.EstimatedGasSaved != "" {
				line += fmt.Sprintf(" (est. savings: %s)", g.EstimatedGasSaved)
			}
			pdfText(pdf, line)
		}
	}

	pdfSection(pdf, "Compliance")
	if len(b.ComplianceResults) == 0 {
		pdfText(pdf, "No compliance standards were checked.")
	} else {
		for _, name := range sortedStandards(b.ComplianceResults) {
			res := b.ComplianceResults[name]
			state := "Non-compliant"
			if res.Compliant {
				state = "Compliant"
			}
			pdfSubsection(pdf, fmt.Sprintf("%s: %s", name, state))
			for _, req := range res.MissingRequirements {
				pdfText(pdf, fmt.Sprintf("Missing: %s", req))
			}
		}
	}

	if b.AnomalyResult != nil {
		pdfSection(pdf, "Anomaly Detection")
		a := b.AnomalyResult
		if a.IsAnomaly {
			pdfText(pdf, fmt.Sprintf("Anomalous (Score: %.2f). %s", a.AnomalyScore, a.Description))
		} else {
			pdfText(pdf, "No anomalies detected.")
		}
		for _, f := range a.Factors {
			pdfText(pdf, fmt.Sprintf("- %s", f))
		}
	}

	pdfSection(pdf, "Recommendations")
	if len(b.Recommendations) == 0 {
		pdfText(pdf, "No recommendations.")
	} else {
		for i, rec := range b.Recommendations {
			pdfText(pdf, fmt.Sprintf("%d. %s", i+1, rec.DisplayText()))
		}
	}

	pdfSection(pdf, "Source Code")
	pdf.SetFont("Courier", "", 8)
	pdf.MultiCell(0, 4, data.SourceCode, "", "L", false)

	pdfSection(pdf, "Disclaimer")
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, disclaimerText, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "can't write pdf")
	}
	return buf.Bytes(), nil
}

func pdfSection(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 7, title, "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
}

func pdfSubsection(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(0, 6, title, "", "L", false)
	pdf.SetFont("Helvetica", "", 10)
}

func pdfText(pdf *gofpdf.Fpdf, text string) {
	pdf.MultiCell(0, 5, text, "", "L", false)
}
