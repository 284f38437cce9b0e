package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/settings"
	"policydesk-backend/narrative"
)

// renderXLSX builds a workbook with an Overview sheet, a Coverage table when
// the extraction produced one, and the narrative summary line by line.
func renderXLSX(doc documents.Document, st settings.Settings) ([]byte, error) {
	f := excelize.NewFile()

	const overview = "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return nil, err
	}
	writeOverviewSheet(f, overview, doc, st)

	if doc.ExtractedData != nil && len(doc.ExtractedData.CoverageDetails) > 0 {
		if err := writeCoverageSheet(f, doc.ExtractedData.CoverageDetails); err != nil {
			return nil, err
		}
	}
	if err := writeSummarySheet(f, doc); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOverviewSheet(f *excelize.File, sheet string, doc documents.Document, st settings.Settings) {
	row := 1
	write := func(label string, value any) {
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, cellA, label)
		_ = f.SetCellValue(sheet, cellB, value)
		row++
	}

	write("Document", doc.OriginalFilename)
	if doc.ClientName != "" {
		write("Client", doc.ClientName)
	}
	if doc.PolicyReference != "" {
		write("Policy reference", doc.PolicyReference)
	}
	write("Uploaded", doc.UploadedAt.Format("2006-01-02"))

	if data := doc.ExtractedData; data != nil {
		write("Policy type", data.PolicyType)
		if data.RiskAssessment != nil {
			risk := data.RiskAssessment.Level
			if data.RiskAssessment.Score != nil {
				risk = fmt.Sprintf("%s (%.1f/10)", risk, *data.RiskAssessment.Score)
			}
			write("Risk level", risk)
			if len(data.RiskAssessment.Factors) > 0 {
				write("Risk factors", strings.Join(data.RiskAssessment.Factors, "; "))
			}
		}
		if data.Contacts != nil {
			if data.Contacts.Insurer != "" {
				write("Insurer", data.Contacts.Insurer)
			}
			if contact := joinNonEmpty(" | ", data.Contacts.Phone, data.Contacts.Email, data.Contacts.Website); contact != "" {
				write("Insurer contact", contact)
			}
		}
		if len(data.Exclusions) > 0 {
			write("Exclusions", strings.Join(data.Exclusions, "; "))
		}
		if len(data.Eligibility) > 0 {
			write("Eligibility", strings.Join(data.Eligibility, "; "))
		}
		if len(data.KeyBenefits) > 0 {
			write("Key benefits", strings.Join(data.KeyBenefits, "; "))
		}
		for i, sc := range data.Scenarios {
			write(fmt.Sprintf("Scenario %d", i+1), joinNonEmpty(": ", sc.Title, sc.Description))
		}
	}

	if prepared := joinNonEmpty(" | ", st.AgentName, st.AgencyName); prepared != "" {
		write("Prepared by", prepared)
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 90)
}

func writeCoverageSheet(f *excelize.File, details []documents.CoverageDetail) error {
	const sheet = "Coverage"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Coverage", "Limit", "Deductible", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range details {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.Name)
		write(2, d.Limit)
		write(3, d.Deductible)
		write(4, d.Description)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 30)
	_ = f.SetColWidth(sheet, "B", "C", 16)
	_ = f.SetColWidth(sheet, "D", "D", 60)
	return nil
}

func writeSummarySheet(f *excelize.File, doc documents.Document) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	row := 1
	write := func(v string) {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheet, cell, v)
		row++
	}

	text := ""
	if doc.Summary != nil {
		text = *doc.Summary
	}
	for _, block := range narrative.Parse(text).Blocks {
		switch block.Kind {
		case narrative.KindBlank:
			write("")
		case narrative.KindSection:
			write("[" + block.Title + "]")
			if len(block.Lead) > 0 {
				write(spanText(block.Lead))
			}
			for _, item := range block.Items {
				write("• " + spanText(item))
			}
		case narrative.KindBullet:
			write("• " + spanText(block.Spans))
		default:
			write(spanText(block.Spans))
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 110)
	return nil
}

func spanText(spans []narrative.Span) string {
	var b strings.Builder
	for _, s := range spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
