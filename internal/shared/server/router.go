package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/jobsearch"
	"resume-tailor-backend/internal/render"
	"resume-tailor-backend/internal/resumes"
	"resume-tailor-backend/internal/shared/config"
	"resume-tailor-backend/internal/shared/metrics"
	"resume-tailor-backend/internal/shared/server/middleware"
	"resume-tailor-backend/internal/shared/server/respond"
	"resume-tailor-backend/internal/tailoring"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config           config.Config
	SearchHandler    *jobsearch.Handler
	ResumeHandler    *resumes.Handler
	TailoringHandler *tailoring.Handler
	RenderHandler    *render.Handler
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
		middleware.RateLimit(pollRateLimit()),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	if deps.SearchHandler != nil {
		api.GET("/search", deps.SearchHandler.Search)
	}
	if deps.ResumeHandler != nil {
		api.POST("/upload", deps.ResumeHandler.Upload)
		api.POST("/extract/:resume_id", deps.ResumeHandler.StartExtraction)
		api.GET("/extract/:resume_id/status", deps.ResumeHandler.ExtractionStatus)
	}
	if deps.TailoringHandler != nil {
		api.POST("/tailor", deps.TailoringHandler.Start)
		api.GET("/tailor/:task_id/status", deps.TailoringHandler.Status)
		api.GET("/download/:file_key", deps.TailoringHandler.Download)
	}
	if deps.RenderHandler != nil {
		api.GET("/render/:file_key", deps.RenderHandler.Render)
	}

	return r
}

// pollRateLimit throttles the status-poll endpoints; everything else passes
// through unlimited.
func pollRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"POLL": {Rate: 5, Burst: 20},
		},
		GroupFor: func(c *gin.Context) string {
			if strings.HasSuffix(c.FullPath(), "/status") {
				return "POLL"
			}
			return ""
		},
	}
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
