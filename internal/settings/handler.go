package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/shared/server/middleware"
	"policydesk-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.get)
	rg.PUT("/settings", h.update)
}

func (h *Handler) get(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)
	st, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load settings", nil)
		return
	}
	respond.JSON(c, http.StatusOK, st)
}

func (h *Handler) update(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	userID := middleware.UserIDFromContext(c)

	var incoming Settings
	if err := c.ShouldBindJSON(&incoming); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	st, err := h.Svc.Update(c.Request.Context(), userID, incoming)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to save settings", nil)
		return
	}
	respond.JSON(c, http.StatusOK, st)
}
