package resumes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/shared/server/middleware"
	"resume-tailor-backend/internal/shared/server/respond"
)

// Handler exposes resume upload and extraction over HTTP.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type uploadResponse struct {
	ResumeID string `json:"resume_id"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

type extractResponse struct {
	ResumeID string `json:"resume_id"`
	Status   string `json:"status"`
}

type extractionStatusResponse struct {
	ResumeID      string         `json:"resume_id"`
	Status        string         `json:"status"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
	ErrorMessage  string         `json:"error_message,omitempty"`
}

// Upload handles POST /api/upload (multipart form, field "file").
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}
	defer f.Close()

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	res, err := h.service.Upload(ctx, fileHeader.Filename, f)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedFileType):
			respond.Error(c, http.StatusBadRequest, "unsupported_file_type", "Only PDF, DOCX, and DOC files are supported", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid upload", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "upload_failed", "failed to store resume", nil)
		}
		return
	}

	respond.OK(c, uploadResponse{
		ResumeID: res.ID,
		Filename: res.FileName,
		Message:  "Resume uploaded successfully",
	})
}

// StartExtraction handles POST /api/extract/:resume_id.
func (h *Handler) StartExtraction(c *gin.Context) {
	resumeID := c.Param("resume_id")
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))

	state, err := h.service.StartExtraction(ctx, resumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "extraction_failed", "failed to start extraction", nil)
		return
	}

	respond.OK(c, extractResponse{
		ResumeID: resumeID,
		Status:   state.Status,
	})
}

// ExtractionStatus handles GET /api/extract/:resume_id/status.
func (h *Handler) ExtractionStatus(c *gin.Context) {
	resumeID := c.Param("resume_id")

	state, err := h.service.ExtractionStatus(c.Request.Context(), resumeID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "status_failed", "failed to read extraction status", nil)
		return
	}

	respond.OK(c, extractionStatusResponse{
		ResumeID:      resumeID,
		Status:        state.Status,
		ExtractedData: state.Data,
		ErrorMessage:  state.ErrorMessage,
	})
}
