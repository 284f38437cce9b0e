package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/export"
	"policydesk-backend/internal/settings"
	"policydesk-backend/narrative"
	"policydesk-backend/narrative/render"
)

// renderdemo exports a sample processed policy document to every output the
// server can produce: the narrative HTML, the PDF, and the XLSX workbook.
// Handy for eyeballing layout changes without uploading a real document.
func main() {
	outDir := flag.String("out", "./out", "output directory for rendered artifacts")
	flag.Parse()

	doc := sampleDocument()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	summary := narrative.Parse(*doc.Summary)
	if summary.Source() != *doc.Summary {
		fmt.Fprintln(os.Stderr, "narrative parse is not source-preserving")
		os.Exit(1)
	}

	htmlPath := filepath.Join(*outDir, "sample_summary.html")
	if err := os.WriteFile(htmlPath, []byte(render.HTML(summary)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write html: %v\n", err)
		os.Exit(1)
	}

	modelPath := filepath.Join(*outDir, "sample_document.json")
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal document: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(modelPath, payload, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write document json: %v\n", err)
		os.Exit(1)
	}

	svc := exportService(doc)
	for _, format := range []string{"pdf", "xlsx"} {
		artifact, err := svc.Export(context.Background(), doc.UserID, doc.ID, format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "export %s: %v\n", format, err)
			os.Exit(1)
		}
		if err := validateArtifact(format, artifact.Data); err != nil {
			fmt.Fprintf(os.Stderr, "validate %s: %v\n", format, err)
			os.Exit(1)
		}
		path := filepath.Join(*outDir, artifact.FileName)
		if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", format, err)
			os.Exit(1)
		}
		fmt.Printf("OK: wrote %s\n", path)
	}

	fmt.Printf("OK: wrote %s\n", htmlPath)
}

func exportService(doc documents.Document) *export.Service {
	docs := documents.NewMemoryRepo()
	if err := docs.Create(context.Background(), doc); err != nil {
		fmt.Fprintf(os.Stderr, "seed document: %v\n", err)
		os.Exit(1)
	}

	settingsSvc := settings.NewService(settings.NewMemoryRepo())
	if _, err := settingsSvc.Update(context.Background(), doc.UserID, settings.Settings{
		AgentName:   "Jordan Reyes",
		AgencyName:  "Harbor Insurance Group",
		AgencyPhone: "+1-555-0148",
		AgencyEmail: "service@harborinsurance.example",
		FooterNote:  "Summary generated for client review. Verify against the full policy wording.",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "seed settings: %v\n", err)
		os.Exit(1)
	}

	return export.NewService(docs, settingsSvc)
}

func sampleDocument() documents.Document {
	score := 6.5
	summaryText := strings.Join([]string{
		"This commercial property policy protects the insured premises against fire, theft, and water damage with a combined single limit of $2,000,000.",
		"[Coverage Highlights]\nThe policy leads with broad building coverage.\n• Building coverage up to **$2,000,000** per occurrence\n• Business personal property up to $500,000\n• Loss of income for up to 12 months",
		"[Key Exclusions]\n• Flood and earthquake damage\n• Wear and tear or gradual deterioration",
		"Claims should be reported within 48 hours of discovery to avoid delays in settlement.",
	}, "\n\n")

	return documents.Document{
		ID:               "demo-doc",
		UserID:           "demo-agent",
		OriginalFilename: "commercial-property-policy.pdf",
		MimeType:         "application/pdf",
		SizeBytes:        182_344,
		Processed:        true,
		ExtractedData: &documents.PolicyData{
			PolicyType: "Commercial Property",
			CoverageDetails: []documents.CoverageDetail{
				{Name: "Building", Limit: "$2,000,000", Deductible: "$10,000"},
				{Name: "Business Personal Property", Limit: "$500,000", Deductible: "$5,000"},
				{Name: "Business Income", Limit: "12 months actual loss sustained"},
			},
			Exclusions:  []string{"Flood", "Earthquake", "Wear and tear"},
			Eligibility: []string{"Commercial buildings built after 1980", "Sprinklered premises"},
			KeyBenefits: []string{"Replacement cost valuation", "Debris removal included"},
			Contacts: &documents.Contacts{
				Insurer: "Northline Mutual",
				Phone:   "+1-555-0199",
				Email:   "claims@northline.example",
			},
			RiskAssessment: &documents.RiskAssessment{
				Level:   "medium",
				Score:   &score,
				Factors: []string{"Coastal location", "Older roof"},
			},
			Scenarios: []documents.Scenario{
				{Title: "Kitchen fire", Description: "Building and contents repairs covered after the $10,000 deductible."},
			},
		},
		Summary:           &summaryText,
		ProcessingOptions: documents.DefaultProcessingOptions(),
		Tags:              []string{"commercial", "property"},
		ClientName:        "Harbor Cafe LLC",
		PolicyReference:   "NP-2218-441",
		UploadedAt:        time.Now().UTC(),
	}
}

func validateArtifact(format string, data []byte) error {
	switch format {
	case "pdf":
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return fmt.Errorf("missing PDF header")
		}
	case "xlsx":
		if !bytes.HasPrefix(data, []byte("PK")) {
			return fmt.Errorf("missing ZIP header")
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("empty artifact")
	}
	return nil
}
