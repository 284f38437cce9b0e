package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	DocumentID        string            `json:"documentId"`
	OriginalName      string            `json:"originalName"`
	MimeType          string            `json:"mimeType"`
	SizeBytes         int64             `json:"sizeBytes"`
	Processed         bool              `json:"processed"`
	ProcessingError   *string           `json:"processingError,omitempty"`
	ExtractedData     *PolicyData       `json:"extractedData,omitempty"`
	Summary           *string           `json:"summary,omitempty"`
	ProcessingOptions ProcessingOptions `json:"processingOptions"`
	IsFavorite        bool              `json:"isFavorite"`
	Tags              []string          `json:"tags"`
	ClientName        string            `json:"clientName"`
	PolicyReference   string            `json:"policyReference"`
	ExportCount       int               `json:"exportCount"`
	LastViewedAt      *time.Time        `json:"lastViewedAt,omitempty"`
	UploadedAt        time.Time         `json:"uploadedAt"`
}

// ToResponse converts a Document to its API shape. Shared with the processing
// and summaries handlers, which return documents from their own routes.
func ToResponse(doc Document) DocumentResponse {
	tags := doc.Tags
	if tags == nil {
		tags = []string{}
	}
	return DocumentResponse{
		DocumentID:        doc.ID,
		OriginalName:      doc.OriginalFilename,
		MimeType:          doc.MimeType,
		SizeBytes:         doc.SizeBytes,
		Processed:         doc.Processed,
		ProcessingError:   doc.ProcessingError,
		ExtractedData:     doc.ExtractedData,
		Summary:           doc.Summary,
		ProcessingOptions: doc.ProcessingOptions,
		IsFavorite:        doc.IsFavorite,
		Tags:              tags,
		ClientName:        doc.ClientName,
		PolicyReference:   doc.PolicyReference,
		ExportCount:       doc.ExportCount,
		LastViewedAt:      doc.LastViewedAt,
		UploadedAt:        doc.UploadedAt,
	}
}
