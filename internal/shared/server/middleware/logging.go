package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/shared/telemetry"
)

// Logging emits one structured log line per request. CORS preflights and
// health/metrics probes are skipped to keep the stream to real traffic.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.EqualFold(c.Request.Method, "OPTIONS") ||
			strings.HasSuffix(path, "/health") ||
			strings.HasSuffix(path, "/metrics") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if userID := UserIDFromContext(c); userID != "" {
			fields["user_id"] = userID
		}
		// Handlers annotate the context with the entities they touched.
		if v := c.GetString("documentId"); v != "" {
			fields["document_id"] = v
		}
		if v := c.GetString("versionId"); v != "" {
			fields["version_id"] = v
		}
		if v := c.GetString("statusTransition"); v != "" {
			fields["status_transition"] = v
		}

		telemetry.Info("request.complete", fields)
	}
}
