package summaries

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrActiveVersion = errors.New("active version cannot be deleted")
	ErrNotReady      = errors.New("document has no summary yet")
	ErrEmptySummary  = errors.New("summary must not be empty")
)
