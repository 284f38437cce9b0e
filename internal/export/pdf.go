package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/settings"
	"policydesk-backend/narrative"
)

const pdfLineHeight = 5.0

// renderPDF typesets the branding block, the structured policy details, and the
// narrative summary into an A4 document.
func renderPDF(doc documents.Document, st settings.Settings) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Policy Summary", true)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-14)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(130, 130, 130)
		pdf.CellFormat(95, 5, tr(st.FooterNote), "", 0, "L", false, 0, "")
		pdf.CellFormat(95, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	writeBranding(pdf, tr, st)
	writeTitle(pdf, tr, doc)
	if doc.ExtractedData != nil {
		writePolicyData(pdf, tr, *doc.ExtractedData)
	}

	sectionHeading(pdf, "Summary")
	summaryText := ""
	if doc.Summary != nil {
		summaryText = *doc.Summary
	}
	writeNarrative(pdf, tr, narrative.Parse(summaryText))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBranding(pdf *fpdf.Fpdf, tr func(string) string, st settings.Settings) {
	if st.AgencyName == "" && st.AgentName == "" {
		return
	}
	if st.AgencyName != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(0, 7, tr(st.AgencyName), "", 1, "L", false, 0, "")
	}
	contact := joinNonEmpty(" | ", st.AgentName, st.AgencyPhone, st.AgencyEmail)
	if contact != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 5, tr(contact), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(4)
}

func writeTitle(pdf *fpdf.Fpdf, tr func(string) string, doc documents.Document) {
	title := doc.ClientName
	if title == "" {
		title = strings.TrimSuffix(doc.OriginalFilename, filepath.Ext(doc.OriginalFilename))
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")

	var parts []string
	if doc.PolicyReference != "" {
		parts = append(parts, "Ref "+doc.PolicyReference)
	}
	if doc.ExtractedData != nil && doc.ExtractedData.PolicyType != "" {
		parts = append(parts, doc.ExtractedData.PolicyType)
	}
	parts = append(parts, "Uploaded "+doc.UploadedAt.Format("2006-01-02"))
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 5, tr(strings.Join(parts, " | ")), "", 1, "L", false, 0, "")
	pdf.Ln(3)
}

func writePolicyData(pdf *fpdf.Fpdf, tr func(string) string, data documents.PolicyData) {
	sectionHeading(pdf, "Policy Details")

	labeled(pdf, tr, "Policy type", data.PolicyType)
	if data.RiskAssessment != nil {
		risk := data.RiskAssessment.Level
		if data.RiskAssessment.Score != nil {
			risk = fmt.Sprintf("%s (%.1f/10)", risk, *data.RiskAssessment.Score)
		}
		labeled(pdf, tr, "Risk level", risk)
	}
	if data.Contacts != nil {
		labeled(pdf, tr, "Insurer", data.Contacts.Insurer)
		labeled(pdf, tr, "Contact", joinNonEmpty(" | ", data.Contacts.Phone, data.Contacts.Email, data.Contacts.Website))
	}
	pdf.Ln(2)

	if len(data.CoverageDetails) > 0 {
		coverageTable(pdf, tr, data.CoverageDetails)
	}
	bulletList(pdf, tr, "Exclusions", data.Exclusions)
	bulletList(pdf, tr, "Eligibility", data.Eligibility)
	bulletList(pdf, tr, "Key benefits", data.KeyBenefits)
	if data.RiskAssessment != nil {
		bulletList(pdf, tr, "Risk factors", data.RiskAssessment.Factors)
	}
	writeScenarios(pdf, tr, data.Scenarios)
}

func sectionHeading(pdf *fpdf.Fpdf, title string) {
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func labeled(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(34, pdfLineHeight, tr(label), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, pdfLineHeight, tr(value), "", "L", false)
}

func coverageTable(pdf *fpdf.Fpdf, tr func(string) string, details []documents.CoverageDetail) {
	type col struct {
		title string
		width float64
	}
	cols := []col{
		{"Coverage", 52},
		{"Limit", 32},
		{"Deductible", 32},
		{"Notes", 74},
	}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(0, 0, 0)
	for _, c := range cols {
		pdf.CellFormat(c.width, 6, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, d := range details {
		pdf.CellFormat(cols[0].width, 6, tr(truncate(d.Name, 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1].width, 6, tr(truncate(d.Limit, 20)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2].width, 6, tr(truncate(d.Deductible, 20)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3].width, 6, tr(truncate(d.Description, 52)), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}

func bulletList(pdf *fpdf.Fpdf, tr func(string) string, title string, items []string) {
	if len(items) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range items {
		pdf.CellFormat(5, pdfLineHeight, tr("•"), "", 0, "R", false, 0, "")
		pdf.MultiCell(0, pdfLineHeight, tr(item), "", "L", false)
	}
	pdf.Ln(2)
}

func writeScenarios(pdf *fpdf.Fpdf, tr func(string) string, scenarios []documents.Scenario) {
	if len(scenarios) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, "Scenarios", "", 1, "L", false, 0, "")
	for _, sc := range scenarios {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, pdfLineHeight, tr(sc.Title), "", 1, "L", false, 0, "")
		if sc.Description != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, pdfLineHeight, tr(sc.Description), "", "L", false)
		}
		pdf.Ln(1)
	}
	pdf.Ln(2)
}

// writeNarrative typesets parsed summary blocks, keeping the bold runs and
// bullet structure the provider emitted.
func writeNarrative(pdf *fpdf.Fpdf, tr func(string) string, sum narrative.Summary) {
	pdf.SetTextColor(0, 0, 0)
	for _, block := range sum.Blocks {
		switch block.Kind {
		case narrative.KindBlank:
			pdf.Ln(2)
		case narrative.KindSection:
			style := "B"
			size := 10.5
			if block.TitleBold {
				size = 11.0
			}
			pdf.SetFont("Helvetica", style, size)
			pdf.CellFormat(0, 6, tr(block.Title), "", 1, "L", false, 0, "")
			if len(block.Lead) > 0 {
				writeSpans(pdf, tr, block.Lead)
			}
			for _, item := range block.Items {
				pdf.SetFont("Helvetica", "", 9.5)
				pdf.CellFormat(5, pdfLineHeight, tr("•"), "", 0, "R", false, 0, "")
				writeSpans(pdf, tr, item)
			}
			pdf.Ln(2)
		case narrative.KindBullet:
			pdf.SetFont("Helvetica", "", 9.5)
			pdf.CellFormat(5, pdfLineHeight, tr("•"), "", 0, "R", false, 0, "")
			writeSpans(pdf, tr, block.Spans)
			pdf.Ln(1)
		default:
			writeSpans(pdf, tr, block.Spans)
			pdf.Ln(2)
		}
	}
}

// writeSpans flows styled runs inline, then breaks the line.
func writeSpans(pdf *fpdf.Fpdf, tr func(string) string, spans []narrative.Span) {
	for _, span := range spans {
		style := ""
		if span.Bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9.5)
		pdf.Write(pdfLineHeight, tr(span.Text))
	}
	pdf.Ln(pdfLineHeight)
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, sep)
}
