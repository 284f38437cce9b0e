package summaries

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/shared/server/middleware"
	"policydesk-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches summary editing and history routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/documents/:id/summary", h.saveEdit)
	rg.GET("/documents/:id/summary-history", h.history)
	rg.POST("/documents/:id/summary-history/:versionId/activate", h.activate)
	rg.DELETE("/documents/:id/summary-history/:versionId", h.deleteVersion)
}

type saveEditRequest struct {
	Summary string `json:"summary"`
}

func (h *Handler) saveEdit(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req saveEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, _, err := h.Svc.SaveEdit(c.Request.Context(), userID, c.Param("id"), req.Summary)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptySummary):
			respond.Error(c, http.StatusBadRequest, "validation_error", "summary must not be empty", nil)
		case errors.Is(err, ErrNotReady):
			respond.Error(c, http.StatusConflict, "conflict", "document has no summary to edit", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save summary", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, documents.ToResponse(doc))
}

func (h *Handler) history(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	versions, err := h.Svc.History(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list summary versions", nil)
		}
		return
	}

	resp := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		resp = append(resp, toVersionResponse(v))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) activate(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Activate(c.Request.Context(), userID, c.Param("id"), c.Param("versionId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "summary version not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to activate summary version", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, documents.ToResponse(doc))
}

func (h *Handler) deleteVersion(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	err := h.Svc.DeleteVersion(c.Request.Context(), userID, c.Param("id"), c.Param("versionId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrActiveVersion):
			respond.Error(c, http.StatusConflict, "conflict", "active version cannot be deleted", nil)
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "summary version not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete summary version", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"message": "summary version deleted"})
}
