package processing

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/llm"
	"policydesk-backend/internal/shared/storage/object"
	"policydesk-backend/internal/shared/storage/object/local"
	"policydesk-backend/internal/summaries"
)

const validEnvelope = `{
  "policyData": {
    "policyType": "General Liability",
    "coverageDetails": [{"name": "Bodily Injury", "limit": "$1,000,000"}],
    "exclusions": ["Flood damage"],
    "eligibility": [],
    "keyBenefits": ["Fast claims handling"],
    "contacts": {"insurer": "Acme Mutual"},
    "riskAssessment": {"level": "medium", "score": 5.5, "factors": ["High deductible"]},
    "scenarios": [{"title": "Storm damage", "description": "Covered up to the aggregate limit."}]
  },
  "summary": "This policy covers general liability with a one million dollar limit."
}`

const secondEnvelope = `{
  "policyData": {
    "policyType": "General Liability",
    "coverageDetails": [{"name": "Bodily Injury", "limit": "$1,000,000"}],
    "exclusions": [],
    "eligibility": [],
    "keyBenefits": [],
    "riskAssessment": {"level": "low"},
    "scenarios": []
  },
  "summary": "Short regenerated summary."
}`

type staticPolicyLLM struct {
	resp string
}

func (s staticPolicyLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return json.RawMessage(s.resp), nil
}

func setupService(t *testing.T, llmClient llm.Client) (*Service, summaries.Repo, *documents.MemoryRepo, string) {
	t.Helper()
	store := local.New(t.TempDir())
	docRepo := documents.NewMemoryRepo()
	versionRepo := summaries.NewMemoryRepo(docRepo)

	userID := "agent-1"
	rawTextKey, _, _, err := store.Save(context.Background(), userID, "policy.txt", bytes.NewReader([]byte("policy text")))
	if err != nil {
		t.Fatalf("save policy text: %v", err)
	}

	doc := documents.Document{
		ID:                "doc-1",
		UserID:            userID,
		OriginalFilename:  "policy.pdf",
		MimeType:          "application/pdf",
		SizeBytes:         10,
		StorageKey:        "original",
		RawTextKey:        rawTextKey,
		ProcessingOptions: documents.DefaultProcessingOptions(),
		Tags:              []string{},
		UploadedAt:        time.Now().UTC(),
	}
	if err := docRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	svc := &Service{
		Docs:     docRepo,
		Versions: versionRepo,
		Store:    store,
		LLM:      llmClient,
	}

	return svc, versionRepo, docRepo, doc.ID
}

func setupServiceWithStore(t *testing.T, llmClient llm.Client, store object.ObjectStore, rawTextKey string) (*Service, summaries.Repo, *documents.MemoryRepo, string) {
	t.Helper()
	docRepo := documents.NewMemoryRepo()
	versionRepo := summaries.NewMemoryRepo(docRepo)

	doc := documents.Document{
		ID:                "doc-1",
		UserID:            "agent-1",
		OriginalFilename:  "policy.pdf",
		MimeType:          "application/pdf",
		SizeBytes:         10,
		StorageKey:        "original",
		RawTextKey:        rawTextKey,
		ProcessingOptions: documents.DefaultProcessingOptions(),
		Tags:              []string{},
		UploadedAt:        time.Now().UTC(),
	}
	if err := docRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("create doc: %v", err)
	}

	svc := &Service{
		Docs:     docRepo,
		Versions: versionRepo,
		Store:    store,
		LLM:      llmClient,
	}

	return svc, versionRepo, docRepo, doc.ID
}

func TestProcessSuccessCreatesActiveVersion(t *testing.T) {
	svc, versions, docs, docID := setupService(t, staticPolicyLLM{resp: validEnvelope})

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !got.Processed {
		t.Fatalf("expected document processed")
	}
	if got.ProcessingError != nil {
		t.Fatalf("expected no processing error, got %q", *got.ProcessingError)
	}
	if got.ExtractedData == nil || got.ExtractedData.PolicyType != "General Liability" {
		t.Fatalf("expected extracted policy data, got %#v", got.ExtractedData)
	}
	if got.Summary == nil || *got.Summary == "" {
		t.Fatalf("expected summary to be set")
	}

	history, err := versions.ListByDocument(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 version, got %d", len(history))
	}
	if !history[0].IsActive {
		t.Fatalf("expected version to be active")
	}
	if history[0].VersionNumber != 1 {
		t.Fatalf("expected version number 1, got %d", history[0].VersionNumber)
	}
	if history[0].SummaryText != *got.Summary {
		t.Fatalf("expected version text to match document summary")
	}
}

type timeoutPolicyLLM struct{}

func (timeoutPolicyLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, context.DeadlineExceeded
}

func TestFailureCodeExtractionTimeout(t *testing.T) {
	svc, versions, docs, docID := setupService(t, timeoutPolicyLLM{})

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if !got.Processed {
		t.Fatalf("expected terminal state after failure")
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, ErrorCodeExtractionTimeout) {
		t.Fatalf("expected %s error, got %v", ErrorCodeExtractionTimeout, got.ProcessingError)
	}
	if got.ExtractedData != nil || got.Summary != nil {
		t.Fatalf("expected no partial result on failure")
	}

	history, err := versions.ListByDocument(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected no versions after failure, got %d", len(history))
	}
}

type timeoutThenSuccessLLM struct {
	calls int
	resp  string
}

func (l *timeoutThenSuccessLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	l.calls++
	if l.calls == 1 {
		return nil, context.DeadlineExceeded
	}
	return json.RawMessage(l.resp), nil
}

func TestRetryOnTimeoutSucceeds(t *testing.T) {
	llmClient := &timeoutThenSuccessLLM{resp: validEnvelope}
	svc, _, docs, docID := setupService(t, llmClient)

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ProcessingError != nil {
		t.Fatalf("expected success after retry, got %q", *got.ProcessingError)
	}
	if !got.Processed || got.Summary == nil {
		t.Fatalf("expected processed document after retry")
	}
	if llmClient.calls != 2 {
		t.Fatalf("expected 2 LLM calls, got %d", llmClient.calls)
	}
}

func TestFailureCodeSchemaMismatch(t *testing.T) {
	svc, _, docs, docID := setupService(t, staticPolicyLLM{resp: "{not-json"})

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, ErrorCodeSchemaMismatch) {
		t.Fatalf("expected %s error, got %v", ErrorCodeSchemaMismatch, got.ProcessingError)
	}
}

func TestFailureCodeSchemaMismatchMissingPolicyData(t *testing.T) {
	svc, _, docs, docID := setupService(t, staticPolicyLLM{resp: `{"summary": "ok"}`})

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, ErrorCodeSchemaMismatch) {
		t.Fatalf("expected %s error, got %v", ErrorCodeSchemaMismatch, got.ProcessingError)
	}
}

func TestBlankSummaryRejected(t *testing.T) {
	blank := strings.Replace(validEnvelope, "This policy covers general liability with a one million dollar limit.", "   ", 1)
	svc, _, docs, docID := setupService(t, staticPolicyLLM{resp: blank})

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, ErrorCodeSchemaMismatch) {
		t.Fatalf("expected %s error for blank summary, got %v", ErrorCodeSchemaMismatch, got.ProcessingError)
	}
}

type failingOpenStore struct{}

func (failingOpenStore) Save(ctx context.Context, userId string, fileName string, r io.Reader) (string, int64, string, error) {
	_ = ctx
	_ = userId
	_ = fileName
	_ = r
	return "", 0, "", errors.New("save not supported")
}

func (failingOpenStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	_ = ctx
	_ = storageKey
	return nil, errors.New("storage open failed")
}

func TestFailureCodeStorage(t *testing.T) {
	svc, _, docs, docID := setupServiceWithStore(t, staticPolicyLLM{resp: validEnvelope}, failingOpenStore{}, "missing-key")

	svc.processAsync(context.Background(), "agent-1", docID)

	got, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.ProcessingError == nil || !strings.Contains(*got.ProcessingError, ErrorCodeStorage) {
		t.Fatalf("expected %s error, got %v", ErrorCodeStorage, got.ProcessingError)
	}
}

type sequenceLLM struct {
	calls int
	resps []string
}

func (l *sequenceLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	resp := l.resps[l.calls%len(l.resps)]
	l.calls++
	return json.RawMessage(resp), nil
}

func TestRegenerateCreatesNextVersion(t *testing.T) {
	llmClient := &sequenceLLM{resps: []string{validEnvelope, secondEnvelope}}
	svc, versions, _, docID := setupService(t, llmClient)

	svc.processAsync(context.Background(), "agent-1", docID)

	opts := documents.ProcessingOptions{DetailLevel: "brief", Format: "bullets"}
	doc, err := svc.Regenerate(context.Background(), "agent-1", docID, &opts)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if doc.Summary == nil || *doc.Summary != "Short regenerated summary." {
		t.Fatalf("expected regenerated summary, got %v", doc.Summary)
	}
	if doc.ProcessingOptions.DetailLevel != "brief" || doc.ProcessingOptions.Format != "bullets" {
		t.Fatalf("expected new options recorded, got %#v", doc.ProcessingOptions)
	}

	history, err := versions.ListByDocument(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(history))
	}
	if history[0].VersionNumber != 2 || !history[0].IsActive {
		t.Fatalf("expected newest version 2 active, got %#v", history[0])
	}
	if history[0].ProcessingOptions.DetailLevel != "brief" {
		t.Fatalf("expected new options on version, got %#v", history[0].ProcessingOptions)
	}
	if history[1].IsActive {
		t.Fatalf("expected previous version inactive")
	}
}

func TestRegeneratePendingRejected(t *testing.T) {
	svc, _, _, docID := setupService(t, staticPolicyLLM{resp: validEnvelope})

	_, err := svc.Regenerate(context.Background(), "agent-1", docID, nil)
	if !errors.Is(err, ErrProcessingInProgress) {
		t.Fatalf("expected ErrProcessingInProgress, got %v", err)
	}
}

func TestRegenerateFailureLeavesDocumentUntouched(t *testing.T) {
	svc, versions, docs, docID := setupService(t, staticPolicyLLM{resp: validEnvelope})

	svc.processAsync(context.Background(), "agent-1", docID)

	before, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}

	svc.LLM = staticPolicyLLM{resp: "{not-json"}
	if _, err := svc.Regenerate(context.Background(), "agent-1", docID, nil); err == nil {
		t.Fatal("expected regenerate to fail")
	}

	after, err := docs.GetByID(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if after.ProcessingError != nil {
		t.Fatalf("expected stored result untouched, got error %q", *after.ProcessingError)
	}
	if after.Summary == nil || *after.Summary != *before.Summary {
		t.Fatalf("expected summary unchanged after failed regenerate")
	}

	history, err := versions.ListByDocument(context.Background(), "agent-1", docID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected history unchanged, got %d versions", len(history))
	}
}

func buildDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body>
</w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestSubmitRunsPipelineToCompletion(t *testing.T) {
	store := local.New(t.TempDir())
	docRepo := documents.NewMemoryRepo()
	versionRepo := summaries.NewMemoryRepo(docRepo)

	svc := &Service{
		Docs:     docRepo,
		Versions: versionRepo,
		Store:    store,
		LLM:      staticPolicyLLM{resp: validEnvelope},
	}

	payload := buildDocx(t, "Commercial policy terms and coverage limits.")
	doc, err := svc.Submit(context.Background(), "agent-1", "policy.docx", bytes.NewReader(payload), documents.DefaultProcessingOptions())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected document id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := docRepo.GetByID(context.Background(), "agent-1", doc.ID)
		if err != nil {
			t.Fatalf("get document: %v", err)
		}
		if got.Processed {
			if got.ProcessingError != nil {
				t.Fatalf("expected pipeline success, got %q", *got.ProcessingError)
			}
			if got.RawTextKey == "" {
				t.Fatal("expected raw text key recorded")
			}
			if got.Summary == nil {
				t.Fatal("expected summary recorded")
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for processing to finish")
		}
		time.Sleep(10 * time.Millisecond)
	}

	history, err := versionRepo.ListByDocument(context.Background(), "agent-1", doc.ID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(history) != 1 || !history[0].IsActive {
		t.Fatalf("expected one active version, got %#v", history)
	}
}
