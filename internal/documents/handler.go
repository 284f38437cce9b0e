package documents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

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

// RegisterRoutes attaches document library routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.DELETE("/documents/:id", h.delete)
	rg.POST("/documents/:id/favorite", h.toggleFavorite)
	rg.PATCH("/documents/:id/tags", h.updateTags)
	rg.PATCH("/documents/:id/client-info", h.updateClientInfo)
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	filter := ListFilter{
		FavoriteOnly: c.Query("favorite") == "true",
		Tag:          c.Query("tag"),
		Limit:        limit,
		Offset:       offset,
	}

	docs, err := h.Svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}

	resp := make([]gin.H, 0, len(docs))
	for _, doc := range docs {
		tags := doc.Tags
		if tags == nil {
			tags = []string{}
		}
		resp = append(resp, gin.H{
			"documentId":      doc.ID,
			"originalName":    doc.OriginalFilename,
			"mimeType":        doc.MimeType,
			"sizeBytes":       doc.SizeBytes,
			"processed":       doc.Processed,
			"processingError": doc.ProcessingError,
			"isFavorite":      doc.IsFavorite,
			"tags":            tags,
			"clientName":      doc.ClientName,
			"policyReference": doc.PolicyReference,
			"exportCount":     doc.ExportCount,
			"lastViewedAt":    doc.LastViewedAt,
			"uploadedAt":      doc.UploadedAt,
		})
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	doc, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"message": "document deleted"})
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	favorite, err := h.Svc.ToggleFavorite(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update favorite", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"isFavorite": favorite})
}

type updateTagsRequest struct {
	Tags []string `json:"tags"`
}

func (h *Handler) updateTags(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req updateTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.UpdateTags(c.Request.Context(), userID, c.Param("id"), req.Tags)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update tags", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, ToResponse(doc))
}

type updateClientInfoRequest struct {
	ClientName      string `json:"clientName"`
	PolicyReference string `json:"policyReference"`
}

func (h *Handler) updateClientInfo(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req updateClientInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	doc, err := h.Svc.UpdateClientInfo(c.Request.Context(), userID, c.Param("id"), req.ClientName, req.PolicyReference)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update client info", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, ToResponse(doc))
}
