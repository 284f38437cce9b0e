// Package client is the Go SDK for the policy document intake API. It wraps
// every endpoint with a typed method, retries upload transport failures, and
// ships a per-upload Tracker that polls processing status until completion.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	agentIDHeader  = "X-Agent-Id"
	maxUploadBytes = 10 << 20

	defaultUploadRetries = 2
	defaultRetryDelay    = 2 * time.Second
)

var partContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// APIError is a non-2xx response decoded from the standard error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the policy intake API on behalf of a single agent.
type Client struct {
	baseURL    string
	agentID    string
	httpClient *http.Client

	uploadRetries int
	retryDelay    time.Duration
}

// New constructs a Client. baseURL should include the /api/v1 prefix.
func New(baseURL, agentID string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		agentID:       agentID,
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		uploadRetries: defaultUploadRetries,
		retryDelay:    defaultRetryDelay,
	}
}

// Upload submits a policy document and returns the created record before
// extraction completes. Transport failures are retried up to 2 times with a
// fixed backoff; any HTTP response, including 4xx, is terminal.
func (c *Client) Upload(ctx context.Context, filename string, file io.Reader, options *ProcessingOptions) (Document, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return Document{}, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxUploadBytes {
		return Document{}, fmt.Errorf("file exceeds the 10MB upload limit")
	}

	var doc Document
	for attempt := 0; ; attempt++ {
		doc, err = c.uploadOnce(ctx, filename, data, options)
		if err == nil || !isTransportError(err) || attempt >= c.uploadRetries {
			return doc, err
		}
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return Document{}, ctx.Err()
		}
	}
}

func (c *Client) uploadOnce(ctx context.Context, filename string, data []byte, options *ProcessingOptions) (Document, error) {
	body, contentType, err := buildUploadBody(filename, data, options)
	if err != nil {
		return Document{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/upload", bytes.NewReader(body))
	if err != nil {
		return Document{}, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(agentIDHeader, c.agentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	var doc Document
	if err := decodeResponse(resp, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func buildUploadBody(filename string, data []byte, options *ProcessingOptions) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	partType := partContentTypes[strings.ToLower(filepath.Ext(filename))]
	if partType == "" {
		partType = "application/octet-stream"
	}
	header.Set("Content-Type", partType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}

	if options != nil {
		raw, err := json.Marshal(options)
		if err != nil {
			return nil, "", err
		}
		if err := writer.WriteField("options", string(raw)); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// Status polls the lightweight processing state for a document.
func (c *Client) Status(ctx context.Context, documentID string) (Status, error) {
	var st Status
	err := c.do(ctx, http.MethodGet, "/documents/"+documentID+"/status", nil, &st)
	return st, err
}

// Document fetches the full record and stamps its last-viewed time.
func (c *Client) Document(ctx context.Context, documentID string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodGet, "/documents/"+documentID, nil, &doc)
	return doc, err
}

// Documents lists the agent's documents newest-first.
func (c *Client) Documents(ctx context.Context, opts ListOptions) ([]Document, error) {
	query := url.Values{}
	if opts.FavoriteOnly {
		query.Set("favorite", "true")
	}
	if opts.Tag != "" {
		query.Set("tag", opts.Tag)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	path := "/documents"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var docs []Document
	err := c.do(ctx, http.MethodGet, path, nil, &docs)
	return docs, err
}

// Delete soft-deletes a document.
func (c *Client) Delete(ctx context.Context, documentID string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+documentID, nil, nil)
}

// Favorite toggles the favorite flag and returns the new value.
func (c *Client) Favorite(ctx context.Context, documentID string) (bool, error) {
	var resp struct {
		IsFavorite bool `json:"isFavorite"`
	}
	err := c.do(ctx, http.MethodPost, "/documents/"+documentID+"/favorite", nil, &resp)
	return resp.IsFavorite, err
}

// SetTags replaces the document's ordered tag list.
func (c *Client) SetTags(ctx context.Context, documentID string, tags []string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPatch, "/documents/"+documentID+"/tags", map[string]any{"tags": tags}, &doc)
	return doc, err
}

// UpdateClientInfo sets the client name and policy reference on a document.
func (c *Client) UpdateClientInfo(ctx context.Context, documentID, clientName, policyReference string) (Document, error) {
	body := map[string]any{"clientName": clientName, "policyReference": policyReference}
	var doc Document
	err := c.do(ctx, http.MethodPatch, "/documents/"+documentID+"/client-info", body, &doc)
	return doc, err
}

// SaveSummary saves an edited summary as a new active version.
func (c *Client) SaveSummary(ctx context.Context, documentID, summary string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPatch, "/documents/"+documentID+"/summary", map[string]any{"summary": summary}, &doc)
	return doc, err
}

// Regenerate re-runs extraction synchronously with the given options.
func (c *Client) Regenerate(ctx context.Context, documentID string, options *ProcessingOptions) (Document, error) {
	var body any
	if options != nil {
		body = map[string]any{"options": options}
	}
	var doc Document
	err := c.do(ctx, http.MethodPost, "/documents/"+documentID+"/regenerate", body, &doc)
	return doc, err
}

// History lists a document's summary versions newest-first.
func (c *Client) History(ctx context.Context, documentID string) ([]SummaryVersion, error) {
	var versions []SummaryVersion
	err := c.do(ctx, http.MethodGet, "/documents/"+documentID+"/summary-history", nil, &versions)
	return versions, err
}

// ActivateVersion makes an older summary version the active one.
func (c *Client) ActivateVersion(ctx context.Context, documentID, versionID string) (Document, error) {
	var doc Document
	err := c.do(ctx, http.MethodPost, "/documents/"+documentID+"/summary-history/"+versionID+"/activate", nil, &doc)
	return doc, err
}

// DeleteVersion removes an inactive summary version.
func (c *Client) DeleteVersion(ctx context.Context, documentID, versionID string) error {
	return c.do(ctx, http.MethodDelete, "/documents/"+documentID+"/summary-history/"+versionID, nil, nil)
}

// Export renders the document summary as a downloadable artifact. Pass an
// empty format to use the agent's default from settings.
func (c *Client) Export(ctx context.Context, documentID, format string) (ExportResult, error) {
	var body io.Reader
	if format != "" {
		raw, err := json.Marshal(map[string]string{"format": format})
		if err != nil {
			return ExportResult{}, err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/documents/"+documentID+"/export", body)
	if err != nil {
		return ExportResult{}, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(agentIDHeader, c.agentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExportResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ExportResult{}, apiErrorFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ExportResult{}, fmt.Errorf("read export body: %w", err)
	}

	result := ExportResult{
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.FileName = params["filename"]
	}
	return result, nil
}

// GetSettings fetches the agent's settings, lazily created server-side.
func (c *Client) GetSettings(ctx context.Context) (Settings, error) {
	var st Settings
	err := c.do(ctx, http.MethodGet, "/settings", nil, &st)
	return st, err
}

// PutSettings saves the agent's settings and returns the normalized result.
func (c *Client) PutSettings(ctx context.Context, settings Settings) (Settings, error) {
	var st Settings
	err := c.do(ctx, http.MethodPut, "/settings", settings, &st)
	return st, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(agentIDHeader, c.agentID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiErrorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unknown"}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}

// isTransportError reports whether the request never produced an HTTP
// response, the only case the upload retry policy covers.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// isTransientPollError reports whether a status poll failure is worth
// retrying on the next tick.
func isTransientPollError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
