package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/extract"
	"policydesk-backend/internal/llm"
	"policydesk-backend/internal/shared/metrics"
	"policydesk-backend/internal/shared/storage/object"
	"policydesk-backend/internal/shared/telemetry"
	"policydesk-backend/internal/summaries"
)

const defaultLLMTimeout = 120 * time.Second

// Service orchestrates document intake and the extraction pipeline. Submit
// returns as soon as the pending row exists; the pipeline itself runs on a
// detached goroutine and always resolves the document into a terminal state.
type Service struct {
	Docs          documents.DocumentsRepo
	Versions      summaries.Repo
	Store         object.ObjectStore
	LLM           llm.Client
	Provider      string
	Model         string
	PromptVersion string
	Timeout       time.Duration
}

// Submit saves the uploaded binary, records the pending document, and kicks
// off asynchronous extraction.
func (s *Service) Submit(ctx context.Context, userID, fileName string, r io.Reader, options documents.ProcessingOptions) (documents.Document, error) {
	if fileName == "" {
		return documents.Document{}, ErrInvalidInput
	}
	options = options.Normalize()

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return documents.Document{}, err
	}

	doc := documents.Document{
		ID:                uuid.NewString(),
		UserID:            userID,
		OriginalFilename:  fileName,
		MimeType:          mimeType,
		SizeBytes:         size,
		StorageKey:        storageKey,
		ProcessingOptions: options,
		Tags:              []string{},
		UploadedAt:        time.Now().UTC(),
	}

	if err := s.Docs.Create(ctx, doc); err != nil {
		return documents.Document{}, err
	}

	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       doc.ID,
		"status":            "pending",
		"status_transition": "uploaded->pending",
	})

	go s.processAsync(backgroundWithRequestID(ctx), userID, doc.ID)

	return doc, nil
}

// Regenerate re-runs extraction for a processed or failed document with the
// given options, synchronously. The document is only rewritten on success; a
// failed regeneration leaves the stored result untouched.
func (s *Service) Regenerate(ctx context.Context, userID, documentID string, options *documents.ProcessingOptions) (documents.Document, error) {
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return documents.Document{}, err
	}
	if !doc.Processed {
		return documents.Document{}, ErrProcessingInProgress
	}

	opts := doc.ProcessingOptions
	if options != nil {
		opts = options.Normalize()
	}

	startedAt := time.Now().UTC()
	metrics.IncExtractionStarted()

	text, err := s.documentText(ctx, doc)
	if err != nil {
		metrics.IncExtractionFailed()
		s.logRegenerateFailure(ctx, userID, documentID, err, &startedAt)
		return documents.Document{}, err
	}

	data, summary, err := s.summarize(ctx, doc.ID, text, opts)
	if err != nil {
		metrics.IncExtractionFailed()
		s.logRegenerateFailure(ctx, userID, documentID, err, &startedAt)
		return documents.Document{}, err
	}

	if err := s.Docs.MarkProcessed(ctx, userID, documentID, data, summary, opts); err != nil {
		metrics.IncExtractionFailed()
		wrapped := fmt.Errorf("mark processed failed: %w", err)
		s.logRegenerateFailure(ctx, userID, documentID, wrapped, &startedAt)
		return documents.Document{}, wrapped
	}
	if _, err := s.Versions.CreateActive(ctx, userID, documentID, summary, opts); err != nil {
		// The row already holds the new result; flip it to failed rather
		// than leave the version history out of step.
		wrapped := fmt.Errorf("summary version write failed: %w", err)
		s.failDocument(ctx, userID, documentID, wrapped, &startedAt)
		return documents.Document{}, wrapped
	}
	metrics.IncVersionCreated()

	completedAt := time.Now().UTC()
	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"status":            "processed",
		"status_transition": "processed->regenerated",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})

	return s.Docs.GetByID(ctx, userID, documentID)
}

func (s *Service) processAsync(ctx context.Context, userID, documentID string) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.failDocument(ctx, userID, documentID, fmt.Errorf("panic: %v", r), &startedAt)
		}
	}()

	metrics.IncExtractionStarted()
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"status":            "processing",
		"status_transition": "pending->processing",
	})

	if s.Docs == nil || s.Store == nil {
		s.failDocument(ctx, userID, documentID, errors.New("missing document store dependencies"), &startedAt)
		return
	}
	if s.LLM == nil {
		s.failDocument(ctx, userID, documentID, errors.New("missing llm client"), &startedAt)
		return
	}
	if s.Versions == nil {
		s.failDocument(ctx, userID, documentID, errors.New("missing version store"), &startedAt)
		return
	}

	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		s.failDocument(ctx, userID, documentID, fmt.Errorf("document lookup id=%s: %w", documentID, err), &startedAt)
		return
	}

	text, err := s.documentText(ctx, doc)
	if err != nil {
		s.failDocument(ctx, userID, documentID, err, &startedAt)
		return
	}

	data, summary, err := s.summarize(ctx, doc.ID, text, doc.ProcessingOptions)
	if err != nil {
		s.failDocument(ctx, userID, documentID, err, &startedAt)
		return
	}

	if err := s.Docs.MarkProcessed(ctx, userID, documentID, data, summary, doc.ProcessingOptions); err != nil {
		s.failDocument(ctx, userID, documentID, fmt.Errorf("mark processed failed: %w", err), &startedAt)
		return
	}
	if _, err := s.Versions.CreateActive(ctx, userID, documentID, summary, doc.ProcessingOptions); err != nil {
		s.failDocument(ctx, userID, documentID, fmt.Errorf("summary version write failed: %w", err), &startedAt)
		return
	}
	metrics.IncVersionCreated()

	completedAt := time.Now().UTC()
	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(durationMs(&startedAt, &completedAt))
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"status":            "processed",
		"status_transition": "processing->processed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
	})
}

// documentText returns the raw policy text, extracting it from the stored
// binary when no derived copy exists yet.
func (s *Service) documentText(ctx context.Context, doc documents.Document) (string, error) {
	if doc.RawTextKey != "" {
		text, err := loadText(ctx, s.Store, doc.RawTextKey)
		if err != nil {
			return "", fmt.Errorf("load extracted text key=%s: %w", doc.RawTextKey, err)
		}
		return text, nil
	}

	text, rawKey, err := extract.ExtractText(ctx, s.Store, doc.StorageKey, doc.MimeType, doc.OriginalFilename)
	if err != nil {
		return "", fmt.Errorf("text extraction: document %s mime %s: %w", doc.ID, doc.MimeType, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text extraction: document %s produced no text", doc.ID)
	}
	if err := s.Docs.SetRawTextKey(ctx, doc.UserID, doc.ID, rawKey); err != nil {
		return "", fmt.Errorf("update raw text key: %w", err)
	}
	return text, nil
}

// summarize runs the AI call with a bounded timeout and validates the
// response envelope against the policy schema.
func (s *Service) summarize(ctx context.Context, documentID, policyText string, options documents.ProcessingOptions) (documents.PolicyData, string, error) {
	requestID := requestIDFromContext(ctx)
	client := newRetryingLLM(s.LLM, documentID, requestID)

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultLLMTimeout
	}
	llmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	input := llm.SummarizeInput{
		PolicyText:             policyText,
		DetailLevel:            options.DetailLevel,
		FocusAreas:             options.FocusAreas,
		Format:                 options.Format,
		IncludeRiskAssessment:  options.IncludeRiskAssessment,
		IncludeRecommendations: options.IncludeRecommendations,
		PromptVersion:          s.promptVersion(),
	}

	var promptHash string
	raw, err := client.SummarizePolicy(llm.WithPromptHashSink(llmCtx, &promptHash), input)
	if err != nil {
		return documents.PolicyData{}, "", fmt.Errorf("llm summarize: %w", err)
	}

	if err := llm.ValidateJSONAgainstSchema(llm.BuildPolicyJSONSchema(), raw); err != nil {
		return documents.PolicyData{}, "", fmt.Errorf("llm output invalid: %w", err)
	}

	var parsed struct {
		PolicyData documents.PolicyData `json:"policyData"`
		Summary    string               `json:"summary"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return documents.PolicyData{}, "", fmt.Errorf("llm output parse: %w", err)
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		return documents.PolicyData{}, "", errors.New("llm output invalid: empty summary")
	}

	telemetry.Info("extraction.llm", map[string]any{
		"request_id":  requestID,
		"document_id": documentID,
		"provider":    s.providerName(),
		"model":       s.Model,
		"prompt_hash": promptHash,
	})
	return parsed.PolicyData, parsed.Summary, nil
}

func (s *Service) failDocument(ctx context.Context, userID, documentID string, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	msg := code + ": " + sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Docs.MarkFailed(context.Background(), userID, documentID, msg); updateErr != nil {
		telemetry.Error("document.fail_write", map[string]any{
			"document_id": documentID,
			"error":       sanitizeError(updateErr),
			"cause":       sanitizeError(err),
		})
	}
	metrics.IncExtractionFailed()
	if startedAt != nil {
		metrics.ObserveExtractionDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"status":            "failed",
		"status_transition": "processing->failed",
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) logRegenerateFailure(ctx context.Context, userID, documentID string, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	completedAt := time.Now().UTC()
	telemetry.Info("document.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"document_id":       documentID,
		"status":            "regenerate_failed",
		"status_transition": "processed->regenerate_failed",
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
}

func (s *Service) providerName() string {
	if strings.TrimSpace(s.Provider) == "" {
		return "openai"
	}
	return s.Provider
}

func (s *Service) promptVersion() string {
	if strings.TrimSpace(s.PromptVersion) == "" {
		return llm.DefaultPromptVersion
	}
	return strings.TrimSpace(s.PromptVersion)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeExtractionTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "openai request timeout") {
		return ErrorCodeExtractionTimeout, true
	}
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeExtractionTimeout, true
	}
	if strings.Contains(msg, "schema") || strings.Contains(msg, "llm output invalid") || strings.Contains(msg, "llm output parse") {
		return ErrorCodeSchemaMismatch, false
	}
	if strings.Contains(msg, "text extraction") || strings.Contains(msg, "unsupported mime type") {
		return ErrorCodeTextExtraction, false
	}
	if strings.Contains(msg, "document") || strings.Contains(msg, "storage") || strings.Contains(msg, "raw text") ||
		strings.Contains(msg, "load extracted") || strings.Contains(msg, "mark processed") || strings.Contains(msg, "version write") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
