package jobsearch

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/shared/server/respond"
)

// Handler exposes job search over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type searchResponse struct {
	Jobs       []Job  `json:"jobs"`
	TotalCount int    `json:"total_count"`
	SearchTerm string `json:"search_term"`
	Location   string `json:"location"`
}

// Search handles GET /api/search.
func (h *Handler) Search(c *gin.Context) {
	term := strings.TrimSpace(c.Query("query"))
	if term == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "query is required", nil)
		return
	}
	location := strings.TrimSpace(c.Query("location"))

	limit := 20
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	ctx := c.Request.Context()
	if proxy := strings.TrimSpace(c.Query("proxy")); proxy != "" {
		client, err := ProxyClient(proxy)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "proxy must be a valid URL", nil)
			return
		}
		ctx = WithHTTPClient(ctx, client)
	}

	jobs, err := h.service.Search(ctx, term, location, limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "search_failed", "Job search failed: "+err.Error(), nil)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}

	respond.OK(c, searchResponse{
		Jobs:       jobs,
		TotalCount: len(jobs),
		SearchTerm: term,
		Location:   location,
	})
}
