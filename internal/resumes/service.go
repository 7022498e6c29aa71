package resumes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-tailor-backend/internal/extract"
	"resume-tailor-backend/internal/llm"
	"resume-tailor-backend/internal/shared/metrics"
	"resume-tailor-backend/internal/shared/storage/object"
	"resume-tailor-backend/internal/shared/telemetry"
	"resume-tailor-backend/internal/shared/util"
)

// ErrUnsupportedFileType rejects uploads outside the PDF/DOCX/DOC whitelist.
var ErrUnsupportedFileType = errors.New("only PDF, DOCX, and DOC files are supported")

// ErrNotRunning is returned by Cancel when no extraction is in flight.
var ErrNotRunning = errors.New("no extraction in progress")

var allowedExtensions = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
}

// Service contains business logic for resume upload and structured extraction.
type Service struct {
	Repo         Repo
	Store        object.ObjectStore
	LLM          llm.Client
	UploadPrefix string
	TaskTimeout  time.Duration

	mu      sync.Mutex
	genSeq  uint64
	cancels map[string]cancelEntry
}

// cancelEntry ties a run's cancel func to its registration generation, so a
// finished run's cleanup cannot cancel a newer run under the same resume ID.
type cancelEntry struct {
	cancel context.CancelFunc
	gen    uint64
}

// NewService constructs a Service.
func NewService(repo Repo, store object.ObjectStore, client llm.Client, uploadPrefix string, taskTimeout time.Duration) *Service {
	if uploadPrefix == "" {
		uploadPrefix = "uploads"
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Minute
	}
	return &Service{
		Repo:         repo,
		Store:        store,
		LLM:          client,
		UploadPrefix: uploadPrefix,
		TaskTimeout:  taskTimeout,
		cancels:      make(map[string]cancelEntry),
	}
}

// Upload validates the file type, saves the payload to object storage and
// records the resume. Nothing is stored when validation fails.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Resume, error) {
	if strings.TrimSpace(fileName) == "" {
		return Resume{}, ErrInvalidInput
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	contentType, ok := allowedExtensions[ext]
	if !ok {
		return Resume{}, ErrUnsupportedFileType
	}

	safeName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Resume{}, ErrInvalidInput
	}

	id := uuid.NewString()
	storageKey := path.Join(s.UploadPrefix, id+"_"+safeName)

	size, err := s.Store.SaveWithKey(ctx, storageKey, contentType, r)
	if err != nil {
		return Resume{}, err
	}

	res := Resume{
		ID:         id,
		FileName:   fileName,
		StorageKey: storageKey,
		Status:     StatusUploaded,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.Repo.CreateResume(ctx, res); err != nil {
		return Resume{}, err
	}

	telemetry.Info("resume.uploaded", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"resume_id":  id,
		"file_name":  fileName,
		"size_bytes": size,
	})
	return res, nil
}

// Get returns a resume by ID.
func (s *Service) Get(ctx context.Context, resumeID string) (Resume, error) {
	if resumeID == "" {
		return Resume{}, ErrInvalidInput
	}
	return s.Repo.GetResume(ctx, resumeID)
}

// StartExtraction triggers background structured extraction for a resume.
// A second trigger while one is running is a no-op that reports the running
// state; retriggering after completion or failure starts a fresh run.
func (s *Service) StartExtraction(ctx context.Context, resumeID string) (ExtractionState, error) {
	resume, err := s.Repo.GetResume(ctx, resumeID)
	if err != nil {
		return ExtractionState{}, err
	}

	won, err := s.Repo.CompareAndSetExtractionStatus(ctx, resumeID, StatusProcessing, StatusProcessing)
	if err != nil {
		return ExtractionState{}, err
	}
	if !won {
		return ExtractionState{ResumeID: resumeID, Status: StatusProcessing}, nil
	}

	runCtx, cancel := context.WithTimeout(backgroundWithRequestID(ctx), s.TaskTimeout)
	gen := s.registerCancel(resumeID, cancel)

	go s.runExtraction(runCtx, resume, gen)

	return ExtractionState{ResumeID: resumeID, Status: StatusProcessing}, nil
}

// ExtractionStatus returns the current extraction state for a resume.
// A resume that was never extracted reports StatusPending.
func (s *Service) ExtractionStatus(ctx context.Context, resumeID string) (ExtractionState, error) {
	if resumeID == "" {
		return ExtractionState{}, ErrInvalidInput
	}
	return s.Repo.GetExtractionState(ctx, resumeID)
}

// Cancel aborts an in-flight extraction. The run fails with a cancellation
// error and the stored state moves to StatusFailed.
func (s *Service) Cancel(resumeID string) error {
	s.mu.Lock()
	entry, ok := s.cancels[resumeID]
	s.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	entry.cancel()
	return nil
}

// registerCancel stores the run's cancel func and returns its generation. A
// displaced entry belongs to a run that already reached a terminal state (the
// status guard blocks retriggers while one is processing), so its context is
// released here.
func (s *Service) registerCancel(resumeID string, cancel context.CancelFunc) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.cancels[resumeID]; ok {
		old.cancel()
	}
	s.genSeq++
	s.cancels[resumeID] = cancelEntry{cancel: cancel, gen: s.genSeq}
	return s.genSeq
}

// dropCancel releases the registration only when it still belongs to the
// calling run. A retrigger may have replaced the entry between the run's last
// status write and its deferred cleanup; that newer run must stay cancelable.
func (s *Service) dropCancel(resumeID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cancels[resumeID]
	if !ok || entry.gen != gen {
		return
	}
	entry.cancel()
	delete(s.cancels, resumeID)
}

func (s *Service) runExtraction(ctx context.Context, resume Resume, gen uint64) {
	defer s.dropCancel(resume.ID, gen)
	defer func() {
		if r := recover(); r != nil {
			s.failExtraction(ctx, resume.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	startedAt := time.Now().UTC()
	metrics.IncExtractionStarted()
	telemetry.Info("extraction.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"resume_id":  resume.ID,
		"status":     StatusProcessing,
	})

	text, err := extract.LoadText(ctx, s.Store, resume.StorageKey, resume.FileName)
	if err != nil {
		s.failExtraction(ctx, resume.ID, fmt.Errorf("load document text: %w", err))
		return
	}

	raw, err := s.LLM.Generate(ctx, llm.BuildExtractionPrompt(text))
	if err != nil {
		s.failExtraction(ctx, resume.ID, fmt.Errorf("llm generate: %w", err))
		return
	}

	data, err := llm.Recover(raw)
	if err != nil {
		telemetry.Error("extraction.parse_failed", map[string]any{
			"request_id":     requestIDFromContext(ctx),
			"resume_id":      resume.ID,
			"output_preview": llm.Preview(raw, 200),
		})
		s.failExtraction(ctx, resume.ID, fmt.Errorf("parse llm output: %w", err))
		return
	}

	if err := s.Repo.SetExtractionState(ctx, ExtractionState{
		ResumeID: resume.ID,
		Status:   StatusCompleted,
		Data:     data,
	}); err != nil {
		// The run context may already be cancelled; persist with a fresh one.
		_ = s.Repo.SetExtractionState(context.Background(), ExtractionState{
			ResumeID: resume.ID,
			Status:   StatusCompleted,
			Data:     data,
		})
	}

	metrics.IncExtractionCompleted()
	metrics.ObserveExtractionDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("extraction.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"resume_id":   resume.ID,
		"status":      StatusCompleted,
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})
}

func (s *Service) failExtraction(ctx context.Context, resumeID string, cause error) {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "extraction cancelled"
	}
	// The run context may be expired; persistence must still go through.
	if err := s.Repo.SetExtractionState(context.Background(), ExtractionState{
		ResumeID:     resumeID,
		Status:       StatusFailed,
		ErrorMessage: msg,
	}); err != nil {
		telemetry.Error("extraction.fail_persist", map[string]any{
			"resume_id": resumeID,
			"error":     err.Error(),
		})
	}
	metrics.IncExtractionFailed()
	telemetry.Error("extraction.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"resume_id":  resumeID,
		"status":     StatusFailed,
		"error":      msg,
	})
}
