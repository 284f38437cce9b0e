package processing_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/bootstrap"
	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/llm"
	"policydesk-backend/internal/shared/config"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const extractionEnvelope = `{
	"policyData": {
		"policyType": "General Liability",
		"coverageDetails": [{"name": "Bodily Injury", "limit": "$1,000,000"}],
		"exclusions": ["Intentional acts"],
		"riskAssessment": {"level": "medium", "score": 5.5}
	},
	"summary": "This policy covers general liability with a one million dollar limit."
}`

const regeneratedEnvelope = `{
	"policyData": {
		"policyType": "General Liability"
	},
	"summary": "Short regenerated summary."
}`

type staticLLM struct {
	resp string
}

func (s staticLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	return json.RawMessage(s.resp), nil
}

type sequenceLLM struct {
	calls int
	resps []string
}

func (s *sequenceLLM) SummarizePolicy(ctx context.Context, input llm.SummarizeInput) (json.RawMessage, error) {
	resp := s.resps[s.calls%len(s.resps)]
	s.calls++
	return json.RawMessage(resp), nil
}

func buildApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func addAgentHeader(req *http.Request) {
	req.Header.Set("X-Agent-Id", "agent-1")
}

func buildDocx(t *testing.T, text string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create docx entry: %v", err)
	}
	xml := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(xml)); err != nil {
		t.Fatalf("write docx entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close docx: %v", err)
	}
	return buf.Bytes()
}

func uploadPolicy(t *testing.T, router http.Handler, fileName, contentType, options string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if options != "" {
		if err := writer.WriteField("options", options); err != nil {
			t.Fatalf("write options field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addAgentHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func waitProcessed(t *testing.T, app *bootstrap.App, documentID string) documents.Document {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		doc, err := app.DocumentsRepo.GetByID(context.Background(), "agent-1", documentID)
		if err != nil {
			t.Fatalf("fetch document: %v", err)
		}
		if doc.Processed {
			return doc
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("document %s never finished processing", documentID)
	return documents.Document{}
}

func TestUploadProcessAndStatus(t *testing.T) {
	app := buildApp(t)
	app.ProcessingService.LLM = staticLLM{resp: extractionEnvelope}

	resp := uploadPolicy(t, app.Router, "liability-policy.docx", docxMimeType, "", buildDocx(t, "Commercial general liability policy for Harbor Freight LLC."))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header")
	}

	var created struct {
		DocumentID string `json:"documentId"`
		Processed  bool   `json:"processed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DocumentID == "" {
		t.Fatalf("expected documentId, got empty")
	}
	if created.Processed {
		t.Fatalf("expected processed false right after upload")
	}

	doc := waitProcessed(t, app, created.DocumentID)
	if doc.ProcessingError != nil {
		t.Fatalf("expected no processing error, got %q", *doc.ProcessingError)
	}

	reqStatus := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/status", nil)
	addAgentHeader(reqStatus)
	respStatus := httptest.NewRecorder()
	app.Router.ServeHTTP(respStatus, reqStatus)

	if respStatus.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", respStatus.Code)
	}

	var status map[string]any
	if err := json.NewDecoder(respStatus.Body).Decode(&status); err != nil {
		t.Fatalf("decode status response: %v", err)
	}
	if status["processed"] != true {
		t.Fatalf("expected processed true, got %v", status["processed"])
	}
	if status["hasData"] != true || status["hasSummary"] != true {
		t.Fatalf("expected hasData and hasSummary true, got %v", status)
	}
	if _, ok := status["processingError"]; ok {
		t.Fatalf("expected no processingError field, got %v", status["processingError"])
	}
}

func TestStatusSecondPollRateLimited(t *testing.T) {
	app := buildApp(t)
	app.ProcessingService.LLM = staticLLM{resp: extractionEnvelope}

	resp := uploadPolicy(t, app.Router, "policy.docx", docxMimeType, "", buildDocx(t, "Policy text."))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	waitProcessed(t, app, created.DocumentID)

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/status", nil)
	addAgentHeader(req1)
	resp1 := httptest.NewRecorder()
	app.Router.ServeHTTP(resp1, req1)
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first poll 200, got %d", resp1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+created.DocumentID+"/status", nil)
	addAgentHeader(req2)
	resp2 := httptest.NewRecorder()
	app.Router.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second poll 429, got %d", resp2.Code)
	}
	if resp2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestUploadOversizeRejectedWithoutDocument(t *testing.T) {
	app := buildApp(t)

	payload := bytes.Repeat([]byte("a"), (10<<20)+1)
	resp := uploadPolicy(t, app.Router, "huge-policy.pdf", "application/pdf", "", payload)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", body.Error.Code)
	}
	if !strings.Contains(body.Error.Message, "10MB") {
		t.Fatalf("expected size limit message, got %q", body.Error.Message)
	}

	docs, err := app.DocumentsRepo.ListByUser(context.Background(), "agent-1", documents.ListFilter{})
	if err != nil {
		t.Fatalf("list documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no document rows after rejected upload, got %d", len(docs))
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	app := buildApp(t)

	resp := uploadPolicy(t, app.Router, "notes.txt", "text/plain", "", []byte("plain text"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %q", payload.Error.Code)
	}
}

func TestUploadRequiresIdentity(t *testing.T) {
	app := buildApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRegenerateOverHTTP(t *testing.T) {
	app := buildApp(t)
	app.ProcessingService.LLM = &sequenceLLM{resps: []string{extractionEnvelope, regeneratedEnvelope}}

	resp := uploadPolicy(t, app.Router, "policy.docx", docxMimeType, "", buildDocx(t, "Policy text."))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	waitProcessed(t, app, created.DocumentID)

	reqBody := bytes.NewBufferString(`{"options": {"detailLevel": "brief", "format": "bullets"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+created.DocumentID+"/regenerate", reqBody)
	req.Header.Set("Content-Type", "application/json")
	addAgentHeader(req)
	regenResp := httptest.NewRecorder()
	app.Router.ServeHTTP(regenResp, req)

	if regenResp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", regenResp.Code, regenResp.Body.String())
	}

	var doc struct {
		Summary           *string `json:"summary"`
		ProcessingOptions struct {
			DetailLevel string `json:"detailLevel"`
			Format      string `json:"format"`
		} `json:"processingOptions"`
	}
	if err := json.NewDecoder(regenResp.Body).Decode(&doc); err != nil {
		t.Fatalf("decode regenerate response: %v", err)
	}
	if doc.Summary == nil || *doc.Summary != "Short regenerated summary." {
		t.Fatalf("expected regenerated summary, got %v", doc.Summary)
	}
	if doc.ProcessingOptions.DetailLevel != "brief" || doc.ProcessingOptions.Format != "bullets" {
		t.Fatalf("expected brief/bullets options, got %+v", doc.ProcessingOptions)
	}
}

func TestRegeneratePendingConflict(t *testing.T) {
	app := buildApp(t)

	doc := documents.Document{
		ID:               "doc-pending",
		UserID:           "agent-1",
		OriginalFilename: "policy.pdf",
		MimeType:         "application/pdf",
		UploadedAt:       time.Now().UTC(),
	}
	if err := app.DocumentsRepo.Create(context.Background(), doc); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/doc-pending/regenerate", nil)
	addAgentHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}
