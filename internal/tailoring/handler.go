package tailoring

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/resumes"
	"resume-tailor-backend/internal/shared/server/middleware"
	"resume-tailor-backend/internal/shared/server/respond"
	"resume-tailor-backend/internal/shared/telemetry"
)

// Handler exposes batch tailoring and result downloads over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type tailorRequest struct {
	ResumeID        string           `json:"resume_id"`
	JobDescriptions []JobDescription `json:"job_descriptions"`
}

type tailorResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type taskStatusResponse struct {
	TaskID          string    `json:"task_id"`
	Status          string    `json:"status"`
	TailoredResumes []Outcome `json:"tailored_resumes,omitempty"`
	DownloadLinks   []string  `json:"download_links,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// Start handles POST /api/tailor.
func (h *Handler) Start(c *gin.Context) {
	var req tailorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.ResumeID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume_id is required", nil)
		return
	}
	if len(req.JobDescriptions) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "job_descriptions must not be empty", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	task, err := h.service.Start(ctx, req.ResumeID, req.JobDescriptions)
	if err != nil {
		switch {
		case errors.Is(err, resumes.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
		case errors.Is(err, ErrExtractionNotReady):
			respond.Error(c, http.StatusBadRequest, "extraction_not_ready", "Resume data not extracted yet. Please extract resume data first.", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "tailoring_failed", "failed to start tailoring", nil)
		}
		return
	}

	respond.OK(c, tailorResponse{
		TaskID:  task.ID,
		Message: "Resume tailoring started",
		Status:  StatusProcessing,
	})
}

// Status handles GET /api/tailor/:task_id/status.
func (h *Handler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.service.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Task not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "status_failed", "failed to read task status", nil)
		return
	}

	respond.OK(c, taskStatusResponse{
		TaskID:          task.ID,
		Status:          task.Status,
		TailoredResumes: task.Results,
		DownloadLinks:   task.DownloadLinks,
		ErrorMessage:    task.ErrorMessage,
	})
}

// Download handles GET /api/download/:file_key.
func (h *Handler) Download(c *gin.Context) {
	fileKey := c.Param("file_key")

	rc, err := h.service.Download(c.Request.Context(), fileKey)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="`+fileKey+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		telemetry.Error("download.stream_failed", map[string]any{
			"file_key": fileKey,
			"error":    err.Error(),
		})
	}
}
