package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/shared/server/middleware"
	"policydesk-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the identity echo endpoint. The web client calls
// it on load to confirm which agent the backend resolved from the headers.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	agentID := middleware.UserIDFromContext(c)
	if agentID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"agentId": agentID,
	})
}
