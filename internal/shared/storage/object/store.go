package object

import (
	"context"
	"io"
)

// ObjectStore persists binary blobs per agent: original policy uploads and the
// raw text extracted from them. Save returns the storage key callers must keep
// to Open the object later; keys are opaque and backend-specific.
type ObjectStore interface {
	Save(ctx context.Context, userID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
