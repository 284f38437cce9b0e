package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/settings"
)

func newExportService(t *testing.T) (*Service, *documents.MemoryRepo, *settings.Service) {
	t.Helper()
	docs := documents.NewMemoryRepo()
	settingsSvc := settings.NewService(settings.NewMemoryRepo())
	return NewService(docs, settingsSvc), docs, settingsSvc
}

func seedProcessedDoc(t *testing.T, repo *documents.MemoryRepo) documents.Document {
	t.Helper()
	doc := documents.Document{
		ID:                "doc-1",
		UserID:            "agent-1",
		OriginalFilename:  "liability policy.pdf",
		MimeType:          "application/pdf",
		SizeBytes:         2048,
		StorageKey:        "original",
		ProcessingOptions: documents.DefaultProcessingOptions(),
		ClientName:        "Harbor Freight LLC",
		PolicyReference:   "GL-2209",
		Tags:              []string{},
		UploadedAt:        time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	score := 6.5
	data := documents.PolicyData{
		PolicyType: "General Liability",
		CoverageDetails: []documents.CoverageDetail{
			{Name: "Bodily Injury", Limit: "$1,000,000", Deductible: "$5,000", Description: "Per occurrence"},
		},
		Exclusions:     []string{"Flood damage"},
		KeyBenefits:    []string{"Fast claims handling"},
		Contacts:       &documents.Contacts{Insurer: "Acme Mutual", Phone: "555-0100"},
		RiskAssessment: &documents.RiskAssessment{Level: "medium", Score: &score, Factors: []string{"High deductible"}},
		Scenarios:      []documents.Scenario{{Title: "Storm damage", Description: "Covered up to the aggregate limit."}},
	}
	summary := "[Overview]\nThis policy provides **broad** liability coverage.\n\n• Claims are acknowledged within 30 days.\n\nReview exclusions before renewal."
	if err := repo.MarkProcessed(context.Background(), "agent-1", doc.ID, data, summary, doc.ProcessingOptions); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	got, err := repo.GetByID(context.Background(), "agent-1", doc.ID)
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	return got
}

func TestExportPDFArtifact(t *testing.T) {
	svc, docs, _ := newExportService(t)
	doc := seedProcessedDoc(t, docs)

	art, err := svc.Export(context.Background(), "agent-1", doc.ID, "pdf")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art.ContentType != "application/pdf" {
		t.Fatalf("unexpected content type %q", art.ContentType)
	}
	if art.FileName != "liability policy-summary.pdf" {
		t.Fatalf("unexpected file name %q", art.FileName)
	}
	if !bytes.HasPrefix(art.Data, []byte("%PDF-")) {
		t.Fatal("expected PDF magic header")
	}
	if len(art.Data) < 500 {
		t.Fatalf("suspiciously small PDF: %d bytes", len(art.Data))
	}

	after, err := docs.GetByID(context.Background(), "agent-1", doc.ID)
	if err != nil {
		t.Fatalf("get doc: %v", err)
	}
	if after.ExportCount != 1 {
		t.Fatalf("expected export count 1, got %d", after.ExportCount)
	}
}

func TestExportXLSXReadBack(t *testing.T) {
	svc, docs, _ := newExportService(t)
	doc := seedProcessedDoc(t, docs)

	art, err := svc.Export(context.Background(), "agent-1", doc.ID, "xlsx")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art.FileName != "liability policy-summary.xlsx" {
		t.Fatalf("unexpected file name %q", art.FileName)
	}

	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 3 {
		t.Fatalf("expected 3 sheets, got %v", sheets)
	}

	if v, _ := f.GetCellValue("Overview", "B1"); v != "liability policy.pdf" {
		t.Fatalf("unexpected overview document cell %q", v)
	}
	if v, _ := f.GetCellValue("Coverage", "A2"); v != "Bodily Injury" {
		t.Fatalf("unexpected coverage cell %q", v)
	}
	if v, _ := f.GetCellValue("Summary", "A1"); v != "[Overview]" {
		t.Fatalf("unexpected summary cell %q", v)
	}

	rows, err := f.GetRows("Overview")
	if err != nil {
		t.Fatalf("read overview rows: %v", err)
	}
	joined := ""
	for _, row := range rows {
		joined += strings.Join(row, " ") + "\n"
	}
	if !strings.Contains(joined, "General Liability") || !strings.Contains(joined, "Acme Mutual") {
		t.Fatalf("expected policy data in overview, got:\n%s", joined)
	}
}

func TestExportDefaultsToSettingsFormat(t *testing.T) {
	svc, docs, settingsSvc := newExportService(t)
	doc := seedProcessedDoc(t, docs)

	if _, err := settingsSvc.Update(context.Background(), "agent-1", settings.Settings{ExportFormat: "xlsx"}); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	art, err := svc.Export(context.Background(), "agent-1", doc.ID, "")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if art.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("expected xlsx from settings default, got %q", art.ContentType)
	}
}

func TestExportPendingRejected(t *testing.T) {
	svc, docs, _ := newExportService(t)
	doc := documents.Document{
		ID:               "doc-pending",
		UserID:           "agent-1",
		OriginalFilename: "policy.pdf",
		Tags:             []string{},
		UploadedAt:       time.Now().UTC(),
	}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	_, err := svc.Export(context.Background(), "agent-1", doc.ID, "pdf")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestExportUnknownFormatRejected(t *testing.T) {
	svc, docs, _ := newExportService(t)
	doc := seedProcessedDoc(t, docs)

	_, err := svc.Export(context.Background(), "agent-1", doc.ID, "docx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportUnknownDocument(t *testing.T) {
	svc, _, _ := newExportService(t)

	_, err := svc.Export(context.Background(), "agent-1", "missing", "pdf")
	if !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type failingCountRepo struct {
	documents.DocumentsRepo
}

func (failingCountRepo) IncrementExportCount(ctx context.Context, userID, documentID string) error {
	return errors.New("count write failed")
}

func TestExportSucceedsWhenCountWriteFails(t *testing.T) {
	svc, docs, _ := newExportService(t)
	doc := seedProcessedDoc(t, docs)
	svc.Docs = failingCountRepo{DocumentsRepo: docs}

	art, err := svc.Export(context.Background(), "agent-1", doc.ID, "pdf")
	if err != nil {
		t.Fatalf("expected export to succeed despite count failure, got %v", err)
	}
	if len(art.Data) == 0 {
		t.Fatal("expected rendered artifact")
	}
}
