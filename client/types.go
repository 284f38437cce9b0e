package client

import "time"

// Document is the API representation of an uploaded policy document.
type Document struct {
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

// PolicyData is the structured extraction result for a document.
type PolicyData struct {
	PolicyType      string           `json:"policyType"`
	CoverageDetails []CoverageDetail `json:"coverageDetails,omitempty"`
	Exclusions      []string         `json:"exclusions,omitempty"`
	Eligibility     []string         `json:"eligibility,omitempty"`
	KeyBenefits     []string         `json:"keyBenefits,omitempty"`
	Contacts        *Contacts        `json:"contacts,omitempty"`
	RiskAssessment  *RiskAssessment  `json:"riskAssessment,omitempty"`
	Scenarios       []Scenario       `json:"scenarios,omitempty"`
}

// CoverageDetail describes a single coverage line item.
type CoverageDetail struct {
	Name        string `json:"name"`
	Limit       string `json:"limit,omitempty"`
	Deductible  string `json:"deductible,omitempty"`
	Description string `json:"description,omitempty"`
}

// Contacts holds insurer contact details pulled from the document.
type Contacts struct {
	Insurer string `json:"insurer,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// RiskAssessment is the extraction service's risk evaluation.
type RiskAssessment struct {
	Level   string   `json:"level"`
	Score   *float64 `json:"score,omitempty"`
	Factors []string `json:"factors,omitempty"`
}

// Scenario illustrates how the policy handles a concrete situation.
type Scenario struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ProcessingOptions controls how a summary is generated.
type ProcessingOptions struct {
	DetailLevel            string   `json:"detailLevel"`
	FocusAreas             []string `json:"focusAreas"`
	Format                 string   `json:"format"`
	IncludeRiskAssessment  bool     `json:"includeRiskAssessment"`
	IncludeRecommendations bool     `json:"includeRecommendations"`
}

// Status is the lightweight processing state returned by the poll endpoint.
type Status struct {
	DocumentID      string  `json:"documentId"`
	OriginalName    string  `json:"originalName"`
	Processed       bool    `json:"processed"`
	ProcessingError *string `json:"processingError,omitempty"`
	HasData         bool    `json:"hasData"`
	HasSummary      bool    `json:"hasSummary"`
}

// SummaryVersion is one entry in a document's summary history.
type SummaryVersion struct {
	VersionID         string            `json:"versionId"`
	DocumentID        string            `json:"documentId"`
	VersionNumber     int               `json:"versionNumber"`
	SummaryText       string            `json:"summaryText"`
	ProcessingOptions ProcessingOptions `json:"processingOptions"`
	IsActive          bool              `json:"isActive"`
	CreatedAt         time.Time         `json:"createdAt"`
}

// Settings holds an agent's preferences.
type Settings struct {
	DefaultOptions ProcessingOptions `json:"defaultOptions"`
	AgentName      string            `json:"agentName"`
	AgencyName     string            `json:"agencyName"`
	AgencyPhone    string            `json:"agencyPhone"`
	AgencyEmail    string            `json:"agencyEmail"`
	FooterNote     string            `json:"footerNote"`
	ExportFormat   string            `json:"exportFormat"`
	Theme          string            `json:"theme"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// ListOptions filters and pages the document list.
type ListOptions struct {
	FavoriteOnly bool
	Tag          string
	Limit        int
	Offset       int
}

// ExportResult is a rendered export artifact.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}
