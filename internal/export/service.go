package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/settings"
	"policydesk-backend/internal/shared/metrics"
	"policydesk-backend/internal/shared/telemetry"
	"policydesk-backend/internal/shared/util"
)

var (
	ErrNotReady          = errors.New("document has no summary to export")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Service renders a processed document into a downloadable artifact. The
// agent's settings supply the default format and the branding block.
type Service struct {
	Docs     documents.DocumentsRepo
	Settings *settings.Service
}

func NewService(docs documents.DocumentsRepo, settingsSvc *settings.Service) *Service {
	return &Service{Docs: docs, Settings: settingsSvc}
}

// Artifact is a rendered export ready to stream to the client.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Export renders the document in the requested format, or the agent's default
// format when none is given. The export counter is bumped best-effort.
func (s *Service) Export(ctx context.Context, userID, documentID, format string) (Artifact, error) {
	doc, err := s.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return Artifact{}, err
	}
	if !doc.Processed || doc.Summary == nil {
		return Artifact{}, ErrNotReady
	}

	st, err := s.Settings.Get(ctx, userID)
	if err != nil {
		return Artifact{}, fmt.Errorf("load settings: %w", err)
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = st.ExportFormat
	}

	var data []byte
	var contentType, ext string
	switch format {
	case "pdf":
		data, err = renderPDF(doc, st)
		contentType = "application/pdf"
		ext = ".pdf"
	case "xlsx":
		data, err = renderXLSX(doc, st)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		ext = ".xlsx"
	default:
		return Artifact{}, ErrUnsupportedFormat
	}
	if err != nil {
		return Artifact{}, err
	}

	if err := s.Docs.IncrementExportCount(ctx, userID, documentID); err != nil {
		telemetry.Error("document.export_count", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
	}
	metrics.IncExport()
	telemetry.Info("document.export", map[string]any{
		"user_id":     userID,
		"document_id": documentID,
		"format":      format,
		"size_bytes":  len(data),
	})

	return Artifact{
		FileName:    exportFileName(doc.OriginalFilename, ext),
		ContentType: contentType,
		Data:        data,
	}, nil
}

// exportFileName derives "<original base>-summary<ext>" from the uploaded name.
func exportFileName(original, ext string) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	sanitized, err := util.SanitizeFileName(base)
	if err != nil || sanitized == "" {
		sanitized = "policy"
	}
	return sanitized + "-summary" + ext
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
