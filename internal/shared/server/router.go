package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policydesk-backend/internal/documents"
	"policydesk-backend/internal/export"
	"policydesk-backend/internal/processing"
	"policydesk-backend/internal/settings"
	"policydesk-backend/internal/shared/config"
	"policydesk-backend/internal/shared/metrics"
	"policydesk-backend/internal/shared/server/middleware"
	"policydesk-backend/internal/shared/server/respond"
	"policydesk-backend/internal/summaries"
)

// RouterDeps carries the assembled handlers the router exposes. Bootstrap
// builds repositories and services; the router only registers routes.
type RouterDeps struct {
	Config            config.Config
	DocumentsHandler  *documents.Handler
	SummariesHandler  *summaries.Handler
	ProcessingHandler *processing.Handler
	SettingsHandler   *settings.Handler
	ExportHandler     *export.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(),
	)

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"UPLOAD":  {Rate: 1, Burst: 10},
			"EXTRACT": {Rate: 0.5, Burst: 5},
			"EXPORT":  {Rate: 1, Burst: 10},
		},
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method != http.MethodPost {
				return ""
			}
			switch c.FullPath() {
			case "/api/v1/documents/upload":
				return "UPLOAD"
			case "/api/v1/documents/:id/regenerate":
				return "EXTRACT"
			case "/api/v1/documents/:id/export":
				return "EXPORT"
			}
			return ""
		},
	}))

	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	registerMeRoutes(api)
	if deps.ProcessingHandler != nil {
		deps.ProcessingHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.SummariesHandler != nil {
		deps.SummariesHandler.RegisterRoutes(api)
	}
	if deps.SettingsHandler != nil {
		deps.SettingsHandler.RegisterRoutes(api)
	}
	if deps.ExportHandler != nil {
		deps.ExportHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
