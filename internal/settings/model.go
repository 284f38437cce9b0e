package settings

import (
	"strings"
	"time"

	"policydesk-backend/internal/documents"
)

// Settings holds an agent's preferences: the default processing options
// applied to new uploads plus the branding block stamped onto exports.
type Settings struct {
	UserID         string                      `json:"-"`
	DefaultOptions documents.ProcessingOptions `json:"defaultOptions"`
	AgentName      string                      `json:"agentName"`
	AgencyName     string                      `json:"agencyName"`
	AgencyPhone    string                      `json:"agencyPhone"`
	AgencyEmail    string                      `json:"agencyEmail"`
	FooterNote     string                      `json:"footerNote"`
	ExportFormat   string                      `json:"exportFormat"`
	Theme          string                      `json:"theme"`
	CreatedAt      time.Time                   `json:"createdAt"`
	UpdatedAt      time.Time                   `json:"updatedAt"`
}

// Defaults returns the settings a user has before their first save.
func Defaults(userID string) Settings {
	return Settings{
		UserID:         userID,
		DefaultOptions: documents.DefaultProcessingOptions(),
		ExportFormat:   "pdf",
		Theme:          "system",
	}
}

// Normalize trims free-text fields and folds enums to their canonical values.
func (s Settings) Normalize() Settings {
	s.DefaultOptions = s.DefaultOptions.Normalize()

	s.AgentName = strings.TrimSpace(s.AgentName)
	s.AgencyName = strings.TrimSpace(s.AgencyName)
	s.AgencyPhone = strings.TrimSpace(s.AgencyPhone)
	s.AgencyEmail = strings.TrimSpace(s.AgencyEmail)
	s.FooterNote = strings.TrimSpace(s.FooterNote)

	switch strings.ToLower(strings.TrimSpace(s.ExportFormat)) {
	case "xlsx":
		s.ExportFormat = "xlsx"
	default:
		s.ExportFormat = "pdf"
	}

	switch strings.ToLower(strings.TrimSpace(s.Theme)) {
	case "light":
		s.Theme = "light"
	case "dark":
		s.Theme = "dark"
	default:
		s.Theme = "system"
	}

	return s
}
