package summaries

import (
	"time"

	"policydesk-backend/internal/documents"
)

// VersionResponse is the outward-facing representation of a summary version.
type VersionResponse struct {
	VersionID         string                      `json:"versionId"`
	DocumentID        string                      `json:"documentId"`
	VersionNumber     int                         `json:"versionNumber"`
	SummaryText       string                      `json:"summaryText"`
	ProcessingOptions documents.ProcessingOptions `json:"processingOptions"`
	IsActive          bool                        `json:"isActive"`
	CreatedAt         time.Time                   `json:"createdAt"`
}

func toVersionResponse(v Version) VersionResponse {
	return VersionResponse{
		VersionID:         v.ID,
		DocumentID:        v.DocumentID,
		VersionNumber:     v.VersionNumber,
		SummaryText:       v.SummaryText,
		ProcessingOptions: v.ProcessingOptions,
		IsActive:          v.IsActive,
		CreatedAt:         v.CreatedAt,
	}
}
