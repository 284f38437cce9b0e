package client

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyDraft is returned by Editor.Save when the draft is empty or
// whitespace-only. The server enforces the same rule; refusing locally keeps
// the failed request off the wire.
var ErrEmptyDraft = errors.New("summary draft is empty")

// Editor holds a local summary draft for one document and tracks whether it
// diverges from the last saved text. It is not safe for concurrent use.
type Editor struct {
	client     *Client
	documentID string
	baseline   string
	draft      string
}

// NewEditor opens an editor over the document's active summary.
func NewEditor(c *Client, doc Document) *Editor {
	baseline := ""
	if doc.Summary != nil {
		baseline = *doc.Summary
	}
	return &Editor{
		client:     c,
		documentID: doc.DocumentID,
		baseline:   baseline,
		draft:      baseline,
	}
}

// Draft returns the current draft text.
func (e *Editor) Draft() string {
	return e.draft
}

// SetDraft replaces the draft text.
func (e *Editor) SetDraft(text string) {
	e.draft = text
}

// Dirty reports whether the draft differs from the last saved summary.
func (e *Editor) Dirty() bool {
	return e.draft != e.baseline
}

// Load rebases the editor on a fresh document, discarding any local draft.
// Call it after a regenerate or version activation replaced the summary.
func (e *Editor) Load(doc Document) {
	baseline := ""
	if doc.Summary != nil {
		baseline = *doc.Summary
	}
	e.documentID = doc.DocumentID
	e.baseline = baseline
	e.draft = baseline
}

// Save persists the draft as a new active summary version and resets the
// baseline. A clean editor saves nothing and returns (nil, nil). An empty or
// whitespace-only draft returns ErrEmptyDraft.
func (e *Editor) Save(ctx context.Context) (*Document, error) {
	if strings.TrimSpace(e.draft) == "" {
		return nil, ErrEmptyDraft
	}
	if !e.Dirty() {
		return nil, nil
	}

	doc, err := e.client.SaveSummary(ctx, e.documentID, e.draft)
	if err != nil {
		return nil, err
	}

	if doc.Summary != nil {
		e.baseline = *doc.Summary
	} else {
		e.baseline = e.draft
	}
	e.draft = e.baseline
	return &doc, nil
}
