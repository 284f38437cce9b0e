package documents

import (
	"strings"
	"time"
)

// Document represents an uploaded policy document owned by an agent.
type Document struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	OriginalFilename  string            `json:"originalFilename"`
	MimeType          string            `json:"mimeType"`
	SizeBytes         int64             `json:"sizeBytes"`
	StorageKey        string            `json:"-"`
	RawTextKey        string            `json:"-"`
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

// PolicyData is the structured extraction result stored alongside a processed document.
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

// RiskAssessment is an optional evaluation of the policy's risk posture.
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

// ProcessingOptions controls how a summary is generated. The same shape is
// accepted on upload, regenerate, and settings defaults.
type ProcessingOptions struct {
	DetailLevel            string   `json:"detailLevel"`
	FocusAreas             []string `json:"focusAreas"`
	Format                 string   `json:"format"`
	IncludeRiskAssessment  bool     `json:"includeRiskAssessment"`
	IncludeRecommendations bool     `json:"includeRecommendations"`
}

// DefaultProcessingOptions returns the options applied when a request supplies none.
func DefaultProcessingOptions() ProcessingOptions {
	return ProcessingOptions{
		DetailLevel:            "standard",
		FocusAreas:             []string{},
		Format:                 "paragraph",
		IncludeRiskAssessment:  true,
		IncludeRecommendations: true,
	}
}

// Normalize lowercases enum fields, drops blank focus areas, and falls back to
// defaults for unrecognized values.
func (o ProcessingOptions) Normalize() ProcessingOptions {
	out := o
	switch strings.ToLower(strings.TrimSpace(o.DetailLevel)) {
	case "brief":
		out.DetailLevel = "brief"
	case "comprehensive":
		out.DetailLevel = "comprehensive"
	default:
		out.DetailLevel = "standard"
	}
	switch strings.ToLower(strings.TrimSpace(o.Format)) {
	case "bullets":
		out.Format = "bullets"
	default:
		out.Format = "paragraph"
	}
	areas := make([]string, 0, len(o.FocusAreas))
	for _, a := range o.FocusAreas {
		if t := strings.TrimSpace(a); t != "" {
			areas = append(areas, t)
		}
	}
	out.FocusAreas = areas
	return out
}
