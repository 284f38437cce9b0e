package summaries

import (
	"context"
	"errors"
	"testing"
	"time"

	"policydesk-backend/internal/documents"
)

func newTestService(t *testing.T) (*Service, *documents.MemoryRepo) {
	t.Helper()
	docs := documents.NewMemoryRepo()
	repo := NewMemoryRepo(docs)
	return &Service{Repo: repo, Docs: docs}, docs
}

func seedProcessedDoc(t *testing.T, svc *Service, docs *documents.MemoryRepo, id, summary string) {
	t.Helper()
	doc := documents.Document{
		ID:                id,
		UserID:            "agent-1",
		OriginalFilename:  id + ".pdf",
		MimeType:          "application/pdf",
		SizeBytes:         1024,
		StorageKey:        "agent-1/" + id + ".pdf",
		ProcessingOptions: documents.DefaultProcessingOptions(),
		UploadedAt:        time.Now().UTC(),
	}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create doc: %v", err)
	}
	if err := docs.MarkProcessed(context.Background(), "agent-1", id, documents.PolicyData{PolicyType: "Auto"}, summary, doc.ProcessingOptions); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if _, err := svc.Repo.CreateActive(context.Background(), "agent-1", id, summary, doc.ProcessingOptions); err != nil {
		t.Fatalf("CreateActive: %v", err)
	}
}

func TestSaveEditCreatesActiveVersionAndMirror(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "original summary")

	doc, created, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", "edited summary")
	if err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	if !created {
		t.Fatalf("expected a new version")
	}
	if doc.Summary == nil || *doc.Summary != "edited summary" {
		t.Fatalf("expected mirror updated, got %v", doc.Summary)
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions[0].VersionNumber != 2 || !versions[0].IsActive {
		t.Fatalf("expected version 2 active first, got %+v", versions[0])
	}
	if versions[1].IsActive {
		t.Fatalf("expected version 1 inactive")
	}
}

func TestSaveEditEmptyRejected(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "original summary")

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, _, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", text); !errors.Is(err, ErrEmptySummary) {
			t.Fatalf("SaveEdit(%q): expected ErrEmptySummary, got %v", text, err)
		}
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected no new versions, got %d", len(versions))
	}
}

func TestSaveEditNoChangeIsNoop(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "original summary")

	doc, created, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", "original summary")
	if err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}
	if created {
		t.Fatalf("expected no version for unchanged text")
	}
	if doc.Summary == nil || *doc.Summary != "original summary" {
		t.Fatalf("expected unchanged summary")
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected history untouched, got %d versions", len(versions))
	}
}

func TestSaveEditWithoutSummaryRejected(t *testing.T) {
	svc, docs := newTestService(t)
	doc := documents.Document{
		ID:                "doc-pending",
		UserID:            "agent-1",
		OriginalFilename:  "pending.pdf",
		MimeType:          "application/pdf",
		SizeBytes:         512,
		ProcessingOptions: documents.DefaultProcessingOptions(),
		UploadedAt:        time.Now().UTC(),
	}
	if err := docs.Create(context.Background(), doc); err != nil {
		t.Fatalf("Create doc: %v", err)
	}

	if _, _, err := svc.SaveEdit(context.Background(), "agent-1", "doc-pending", "text"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestActivateFlipsSingleActiveAndMirror(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "version one")

	if _, _, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", "version two"); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	oldest := versions[len(versions)-1]

	doc, err := svc.Activate(context.Background(), "agent-1", "doc-1", oldest.ID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if doc.Summary == nil || *doc.Summary != "version one" {
		t.Fatalf("expected mirror to follow activated version, got %v", doc.Summary)
	}

	versions, err = svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	active := 0
	for _, v := range versions {
		if v.IsActive {
			active++
			if v.ID != oldest.ID {
				t.Fatalf("wrong version active: %+v", v)
			}
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active version, got %d", active)
	}
}

func TestDeleteActiveVersionRejected(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "version one")

	if _, _, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", "version two"); err != nil {
		t.Fatalf("SaveEdit: %v", err)
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	activeID := versions[0].ID
	inactiveID := versions[1].ID

	if err := svc.DeleteVersion(context.Background(), "agent-1", "doc-1", activeID); !errors.Is(err, ErrActiveVersion) {
		t.Fatalf("expected ErrActiveVersion, got %v", err)
	}

	if err := svc.DeleteVersion(context.Background(), "agent-1", "doc-1", inactiveID); err != nil {
		t.Fatalf("DeleteVersion inactive: %v", err)
	}

	versions, err = svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 1 || versions[0].ID != activeID {
		t.Fatalf("expected only the active version to remain, got %+v", versions)
	}
}

func TestVersionNumbersMonotonic(t *testing.T) {
	svc, docs := newTestService(t)
	seedProcessedDoc(t, svc, docs, "doc-1", "v1")

	for _, text := range []string{"v2", "v3", "v4"} {
		if _, _, err := svc.SaveEdit(context.Background(), "agent-1", "doc-1", text); err != nil {
			t.Fatalf("SaveEdit %q: %v", text, err)
		}
	}

	versions, err := svc.History(context.Background(), "agent-1", "doc-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("expected 4 versions, got %d", len(versions))
	}
	for i, v := range versions {
		want := 4 - i
		if v.VersionNumber != want {
			t.Fatalf("expected version %d at index %d, got %d", want, i, v.VersionNumber)
		}
	}
}
