package render

import (
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-tailor-backend/internal/shared/server/respond"
	"resume-tailor-backend/internal/shared/storage/object"
)

// Handler turns stored tailored-resume JSON files into Word documents.
type Handler struct {
	store  object.ObjectStore
	prefix string
}

func NewHandler(store object.ObjectStore, tailoredPrefix string) *Handler {
	if tailoredPrefix == "" {
		tailoredPrefix = "tailored_resumes"
	}
	return &Handler{store: store, prefix: tailoredPrefix}
}

// Render handles GET /api/render/:file_key.
func (h *Handler) Render(c *gin.Context) {
	fileKey := c.Param("file_key")
	if fileKey == "" || strings.ContainsAny(fileKey, "/\\") || strings.Contains(fileKey, "..") {
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
		return
	}

	rc, err := h.store.Open(c.Request.Context(), path.Join(h.prefix, fileKey))
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "File not found", nil)
		return
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to read tailored resume", nil)
		return
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		respond.Error(c, http.StatusInternalServerError, "render_failed", "stored file is not valid resume JSON", nil)
		return
	}

	doc, err := Docx(data)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "render_failed", "failed to render document", nil)
		return
	}

	docName := strings.TrimSuffix(fileKey, ".json") + ".docx"
	c.Header("Content-Disposition", `attachment; filename="`+docName+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", doc)
}
