package summaries

import (
	"time"

	"policydesk-backend/internal/documents"
)

// Version is one saved summary revision for a document. Version numbers rise
// monotonically per document and exactly one version is active at a time.
type Version struct {
	ID                string                      `json:"id"`
	DocumentID        string                      `json:"documentId"`
	VersionNumber     int                         `json:"versionNumber"`
	SummaryText       string                      `json:"summaryText"`
	ProcessingOptions documents.ProcessingOptions `json:"processingOptions"`
	IsActive          bool                        `json:"isActive"`
	CreatedAt         time.Time                   `json:"createdAt"`
}
