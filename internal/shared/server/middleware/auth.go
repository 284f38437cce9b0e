package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/shared/server/respond"
)

const (
	userIDKey     = "userId"
	agentIDHeader = "X-Agent-Id"
)

// Auth resolves the calling agent's identity and stores it in context. The
// API sits behind the agency gateway, which authenticates agents and forwards
// the stable agent id in the X-Agent-Id header.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasSuffix(path, "/health") || strings.HasSuffix(path, "/metrics") {
			c.Next()
			return
		}

		agentID := strings.TrimSpace(c.GetHeader(agentIDHeader))
		if agentID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(userIDKey, agentID)
		c.Next()
	}
}

// UserIDFromContext fetches the agent id set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
