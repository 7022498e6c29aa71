package tailoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-tailor-backend/internal/llm"
	"resume-tailor-backend/internal/resumes"
	"resume-tailor-backend/internal/shared/metrics"
	"resume-tailor-backend/internal/shared/storage/object"
	"resume-tailor-backend/internal/shared/telemetry"
	"resume-tailor-backend/internal/shared/util"
)

// ErrExtractionNotReady means the resume has no completed structured
// extraction to tailor from.
var ErrExtractionNotReady = errors.New("resume data not extracted yet")

// ErrNotRunning is returned by Cancel when no batch is in flight.
var ErrNotRunning = errors.New("no tailoring task in progress")

// ErrFileNotFound is returned by Download for unknown file keys.
var ErrFileNotFound = errors.New("tailored file not found")

const failedAllMessage = "Failed to tailor any resumes"

// Service runs batch resume tailoring against an LLM.
type Service struct {
	Repo           Repo
	Resumes        resumes.Repo
	Store          object.ObjectStore
	LLM            llm.Client
	TailoredPrefix string
	TaskTimeout    time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService constructs a Service.
func NewService(repo Repo, resumeRepo resumes.Repo, store object.ObjectStore, client llm.Client, tailoredPrefix string, taskTimeout time.Duration) *Service {
	if tailoredPrefix == "" {
		tailoredPrefix = "tailored_resumes"
	}
	if taskTimeout <= 0 {
		taskTimeout = 5 * time.Minute
	}
	return &Service{
		Repo:           repo,
		Resumes:        resumeRepo,
		Store:          store,
		LLM:            client,
		TailoredPrefix: tailoredPrefix,
		TaskTimeout:    taskTimeout,
		cancels:        make(map[string]context.CancelFunc),
	}
}

// Start validates preconditions, records a pending task and kicks off the
// batch in the background.
func (s *Service) Start(ctx context.Context, resumeID string, jobs []JobDescription) (Task, error) {
	if resumeID == "" {
		return Task{}, ErrInvalidInput
	}
	if len(jobs) == 0 {
		return Task{}, fmt.Errorf("%w: at least one job description is required", ErrInvalidInput)
	}

	state, err := s.Resumes.GetExtractionState(ctx, resumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			return Task{}, resumes.ErrNotFound
		}
		return Task{}, err
	}
	if state.Status != resumes.StatusCompleted || state.Data == nil {
		return Task{}, ErrExtractionNotReady
	}

	task := Task{
		ID:        uuid.NewString(),
		ResumeID:  resumeID,
		Jobs:      jobs,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.CreateTask(ctx, task); err != nil {
		return Task{}, err
	}

	runCtx, cancel := context.WithTimeout(backgroundWithRequestID(ctx), s.TaskTimeout)
	s.registerCancel(task.ID, cancel)

	go s.runBatch(runCtx, task, state.Data)

	return task, nil
}

// Get returns a tailoring task by ID.
func (s *Service) Get(ctx context.Context, taskID string) (Task, error) {
	if taskID == "" {
		return Task{}, ErrInvalidInput
	}
	return s.Repo.GetTask(ctx, taskID)
}

// Cancel aborts an in-flight batch. Jobs already tailored keep their stored
// files; the task itself fails.
func (s *Service) Cancel(taskID string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[taskID]
	s.mu.Unlock()
	if !ok {
		return ErrNotRunning
	}
	cancel()
	return nil
}

// Download opens a tailored resume file by its bare file name. Path
// separators are rejected so keys cannot escape the tailored prefix.
func (s *Service) Download(ctx context.Context, fileKey string) (io.ReadCloser, error) {
	if fileKey == "" || strings.ContainsAny(fileKey, "/\\") || strings.Contains(fileKey, "..") {
		return nil, ErrFileNotFound
	}
	rc, err := s.Store.Open(ctx, path.Join(s.TailoredPrefix, fileKey))
	if err != nil {
		return nil, ErrFileNotFound
	}
	return rc, nil
}

func (s *Service) registerCancel(taskID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[taskID] = cancel
	s.mu.Unlock()
}

func (s *Service) dropCancel(taskID string) {
	s.mu.Lock()
	if cancel, ok := s.cancels[taskID]; ok {
		cancel()
		delete(s.cancels, taskID)
	}
	s.mu.Unlock()
}

// runBatch tailors the resume to each job sequentially. A failed job is
// skipped; the task completes when at least one job succeeded and fails
// otherwise.
func (s *Service) runBatch(ctx context.Context, task Task, resumeData map[string]any) {
	defer s.dropCancel(task.ID)
	defer func() {
		if r := recover(); r != nil {
			s.failTask(ctx, task.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	startedAt := time.Now().UTC()
	metrics.IncTailoringStarted()
	if err := s.Repo.UpdateTaskStatus(ctx, task.ID, StatusProcessing, nil, nil, ""); err != nil {
		s.failTask(ctx, task.ID, fmt.Errorf("set processing: %w", err))
		return
	}
	telemetry.Info("tailoring.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"task_id":    task.ID,
		"resume_id":  task.ResumeID,
		"status":     StatusProcessing,
		"jobs":       len(task.Jobs),
	})

	var (
		results []Outcome
		links   []string
	)
	for i, jd := range task.Jobs {
		if err := ctx.Err(); err != nil {
			s.failTask(ctx, task.ID, err)
			return
		}

		outcome, err := s.tailorOne(ctx, task.ResumeID, resumeData, jd, i)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.failTask(ctx, task.ID, err)
				return
			}
			metrics.IncTailoredJobFailed()
			telemetry.Warn("tailoring.job_failed", map[string]any{
				"request_id": requestIDFromContext(ctx),
				"task_id":    task.ID,
				"job_index":  i,
				"job_title":  jd.Title,
				"company":    jd.Company,
				"error":      err.Error(),
			})
			continue
		}
		metrics.IncTailoredJob()
		results = append(results, outcome)
		links = append(links, "/api/download/"+outcome.Filename)
	}

	if len(results) == 0 {
		s.failTask(ctx, task.ID, errors.New(failedAllMessage))
		return
	}

	if err := s.Repo.UpdateTaskStatus(context.Background(), task.ID, StatusCompleted, results, links, ""); err != nil {
		telemetry.Error("tailoring.complete_persist", map[string]any{
			"task_id": task.ID,
			"error":   err.Error(),
		})
		return
	}

	metrics.IncTailoringCompleted()
	metrics.ObserveTailoringDurationMs(float64(time.Since(startedAt).Milliseconds()))
	telemetry.Info("tailoring.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"task_id":     task.ID,
		"resume_id":   task.ResumeID,
		"status":      StatusCompleted,
		"succeeded":   len(results),
		"failed":      len(task.Jobs) - len(results),
		"duration_ms": time.Since(startedAt).Milliseconds(),
	})
}

func (s *Service) tailorOne(ctx context.Context, resumeID string, resumeData map[string]any, jd JobDescription, index int) (Outcome, error) {
	jdMap := map[string]any{
		"title":       jd.Title,
		"company":     jd.Company,
		"description": jd.Description,
	}
	if jd.Location != "" {
		jdMap["location"] = jd.Location
	}
	if len(jd.Requirements) > 0 {
		jdMap["requirements"] = jd.Requirements
	}
	if len(jd.PreferredSkills) > 0 {
		jdMap["preferred_skills"] = jd.PreferredSkills
	}

	prompt, err := llm.BuildTailoringPrompt(resumeData, jdMap)
	if err != nil {
		return Outcome{}, err
	}

	raw, err := s.LLM.Generate(ctx, prompt)
	if err != nil {
		return Outcome{}, fmt.Errorf("llm generate: %w", err)
	}

	tailored, err := llm.Recover(raw)
	if err != nil {
		telemetry.Warn("tailoring.parse_failed", map[string]any{
			"resume_id":      resumeID,
			"job_index":      index,
			"output_preview": llm.Preview(raw, 200),
		})
		return Outcome{}, fmt.Errorf("parse llm output: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_%s_%d.json",
		resumeID,
		util.SanitizeToken(jd.Company),
		util.SanitizeToken(jd.Title),
		index,
	)

	payload, err := json.MarshalIndent(tailored, "", "  ")
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal tailored resume: %w", err)
	}
	key := path.Join(s.TailoredPrefix, filename)
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		return Outcome{}, fmt.Errorf("save tailored resume: %w", err)
	}

	return Outcome{
		JobTitle:        jd.Title,
		Company:         jd.Company,
		TailoredContent: tailored,
		Filename:        filename,
	}, nil
}

func (s *Service) failTask(ctx context.Context, taskID string, cause error) {
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "tailoring cancelled"
	}
	if err := s.Repo.UpdateTaskStatus(context.Background(), taskID, StatusFailed, nil, nil, msg); err != nil {
		telemetry.Error("tailoring.fail_persist", map[string]any{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
	metrics.IncTailoringFailed()
	telemetry.Error("tailoring.status", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"task_id":    taskID,
		"status":     StatusFailed,
		"error":      msg,
	})
}
