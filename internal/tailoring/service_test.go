package tailoring

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"resume-tailor-backend/internal/resumes"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.data[storageKey] = raw
	s.mu.Unlock()
	return int64(len(raw)), nil
}

func (s *memStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	raw, ok := s.data[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object not found: %s", storageKey)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// promptLLM selects its reply by matching substrings of the prompt, so a
// batch can mix succeeding and failing jobs.
type promptLLM struct {
	replies  map[string]string
	fallback string
	delay    time.Duration
}

func (s promptLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	for marker, reply := range s.replies {
		if strings.Contains(prompt, marker) {
			return reply, nil
		}
	}
	return s.fallback, nil
}

func seedExtractedResume(t *testing.T, repo resumes.Repo, resumeID string) {
	t.Helper()
	err := repo.CreateResume(context.Background(), resumes.Resume{
		ID:         resumeID,
		FileName:   "resume.pdf",
		StorageKey: "uploads/" + resumeID + "_resume.pdf",
		Status:     "uploaded",
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}
	err = repo.SetExtractionState(context.Background(), resumes.ExtractionState{
		ResumeID: resumeID,
		Status:   resumes.StatusCompleted,
		Data:     map[string]any{"summary": "Go engineer", "skills": map[string]any{"Technical": []any{"Go"}}},
	})
	if err != nil {
		t.Fatalf("SetExtractionState: %v", err)
	}
}

func waitForTerminalTask(t *testing.T, svc *Service, taskID string) Task {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		task, err := svc.Get(context.Background(), taskID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if task.Status == StatusCompleted || task.Status == StatusFailed {
			return task
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("task never reached a terminal status")
	return Task{}
}

func TestStartRequiresKnownResume(t *testing.T) {
	svc := NewService(NewMemoryRepo(), resumes.NewMemoryRepo(), newMemStore(), promptLLM{}, "tailored_resumes", time.Minute)
	_, err := svc.Start(context.Background(), "ghost", []JobDescription{{Title: "x", Company: "y", Description: "z"}})
	if !errors.Is(err, resumes.ErrNotFound) {
		t.Fatalf("expected resumes.ErrNotFound, got %v", err)
	}
}

func TestStartRequiresCompletedExtraction(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	err := resumeRepo.CreateResume(context.Background(), resumes.Resume{ID: "r1", FileName: "r.pdf", Status: "uploaded", UploadedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}

	svc := NewService(NewMemoryRepo(), resumeRepo, newMemStore(), promptLLM{}, "tailored_resumes", time.Minute)
	_, err = svc.Start(context.Background(), "r1", []JobDescription{{Title: "x", Company: "y", Description: "z"}})
	if !errors.Is(err, ErrExtractionNotReady) {
		t.Fatalf("expected ErrExtractionNotReady, got %v", err)
	}
}

func TestStartRequiresJobs(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	seedExtractedResume(t, resumeRepo, "r1")

	svc := NewService(NewMemoryRepo(), resumeRepo, newMemStore(), promptLLM{}, "tailored_resumes", time.Minute)
	if _, err := svc.Start(context.Background(), "r1", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestBatchCompletesAndStoresFiles(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	seedExtractedResume(t, resumeRepo, "r1")
	store := newMemStore()

	svc := NewService(NewMemoryRepo(), resumeRepo, store, promptLLM{
		fallback: `{"summary": "tailored for the role"}`,
	}, "tailored_resumes", time.Minute)

	task, err := svc.Start(context.Background(), "r1", []JobDescription{
		{Title: "Backend Engineer", Company: "Acme Inc.", Description: "Go services"},
		{Title: "Platform Engineer", Company: "Beta", Description: "Infra"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if task.Status != StatusPending {
		t.Fatalf("expected pending at creation, got %q", task.Status)
	}

	final := waitForTerminalTask(t, svc, task.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", final.Status, final.ErrorMessage)
	}
	if len(final.Results) != 2 || len(final.DownloadLinks) != 2 {
		t.Fatalf("expected 2 results and links, got %d/%d", len(final.Results), len(final.DownloadLinks))
	}

	// File names carry resume id, sanitized company/title and the job index.
	want := "r1_Acme Inc_Backend Engineer_0.json"
	if final.Results[0].Filename != want {
		t.Fatalf("got filename %q, want %q", final.Results[0].Filename, want)
	}
	if final.DownloadLinks[0] != "/api/download/"+want {
		t.Fatalf("unexpected download link %q", final.DownloadLinks[0])
	}

	store.mu.Lock()
	_, stored := store.data["tailored_resumes/"+want]
	store.mu.Unlock()
	if !stored {
		t.Fatal("tailored file not written to store")
	}
}

func TestBatchSkipsFailedJobs(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	seedExtractedResume(t, resumeRepo, "r1")

	svc := NewService(NewMemoryRepo(), resumeRepo, newMemStore(), promptLLM{
		replies: map[string]string{
			"BadCo": "I'm sorry, I cannot produce JSON today",
		},
		fallback: `{"summary": "tailored"}`,
	}, "tailored_resumes", time.Minute)

	task, err := svc.Start(context.Background(), "r1", []JobDescription{
		{Title: "Engineer", Company: "GoodCo", Description: "good"},
		{Title: "Engineer", Company: "BadCo", Description: "bad"},
		{Title: "Engineer", Company: "OtherCo", Description: "good"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForTerminalTask(t, svc, task.ID)
	if final.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", final.Status, final.ErrorMessage)
	}
	if len(final.Results) != 2 {
		t.Fatalf("expected 2 surviving results, got %d", len(final.Results))
	}
	for _, r := range final.Results {
		if r.Company == "BadCo" {
			t.Fatal("failed job must not appear in results")
		}
	}
	// Indexes in file names reflect batch position, not result position.
	if final.Results[1].Filename != "r1_OtherCo_Engineer_2.json" {
		t.Fatalf("unexpected filename %q", final.Results[1].Filename)
	}
}

func TestBatchFailsWhenEveryJobFails(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	seedExtractedResume(t, resumeRepo, "r1")

	svc := NewService(NewMemoryRepo(), resumeRepo, newMemStore(), promptLLM{
		fallback: "no json here",
	}, "tailored_resumes", time.Minute)

	task, err := svc.Start(context.Background(), "r1", []JobDescription{
		{Title: "A", Company: "X", Description: "d"},
		{Title: "B", Company: "Y", Description: "d"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	final := waitForTerminalTask(t, svc, task.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected failed, got %q", final.Status)
	}
	if final.ErrorMessage != failedAllMessage {
		t.Fatalf("unexpected error message %q", final.ErrorMessage)
	}
}

func TestCancelInFlightBatch(t *testing.T) {
	resumeRepo := resumes.NewMemoryRepo()
	seedExtractedResume(t, resumeRepo, "r1")

	svc := NewService(NewMemoryRepo(), resumeRepo, newMemStore(), promptLLM{
		fallback: `{"summary": "slow"}`,
		delay:    5 * time.Second,
	}, "tailored_resumes", time.Minute)

	task, err := svc.Start(context.Background(), "r1", []JobDescription{
		{Title: "A", Company: "X", Description: "d"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Cancel(task.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	final := waitForTerminalTask(t, svc, task.ID)
	if final.Status != StatusFailed {
		t.Fatalf("expected failed after cancel, got %q", final.Status)
	}
	if final.ErrorMessage != "tailoring cancelled" {
		t.Fatalf("unexpected error message %q", final.ErrorMessage)
	}
}

func TestDownloadRejectsTraversal(t *testing.T) {
	svc := NewService(NewMemoryRepo(), resumes.NewMemoryRepo(), newMemStore(), promptLLM{}, "tailored_resumes", time.Minute)
	for _, key := range []string{"", "../secrets.json", "a/b.json", `a\b.json`, "..", "x..y.json"} {
		if _, err := svc.Download(context.Background(), key); !errors.Is(err, ErrFileNotFound) {
			t.Fatalf("Download(%q): expected ErrFileNotFound, got %v", key, err)
		}
	}
}

func TestDownloadRoundTrip(t *testing.T) {
	store := newMemStore()
	svc := NewService(NewMemoryRepo(), resumes.NewMemoryRepo(), store, promptLLM{}, "tailored_resumes", time.Minute)

	payload := []byte(`{"summary": "tailored"}`)
	if _, err := store.SaveWithKey(context.Background(), "tailored_resumes/r1_Acme_Engineer_0.json", "application/json", bytes.NewReader(payload)); err != nil {
		t.Fatalf("SaveWithKey: %v", err)
	}

	rc, err := svc.Download(context.Background(), "r1_Acme_Engineer_0.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("downloaded bytes differ: %s", got)
	}
}
