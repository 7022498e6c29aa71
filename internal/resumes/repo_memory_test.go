package resumes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func seedResume(t *testing.T, repo Repo, id string) {
	t.Helper()
	err := repo.CreateResume(context.Background(), Resume{
		ID:         id,
		FileName:   "resume.pdf",
		StorageKey: "uploads/" + id + "_resume.pdf",
		Status:     StatusUploaded,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateResume: %v", err)
	}
}

func TestMemoryRepoExtractionDefaultsToPending(t *testing.T) {
	repo := NewMemoryRepo()
	seedResume(t, repo, "r1")

	state, err := repo.GetExtractionState(context.Background(), "r1")
	if err != nil {
		t.Fatalf("GetExtractionState: %v", err)
	}
	if state.Status != StatusPending {
		t.Fatalf("expected pending, got %q", state.Status)
	}
}

func TestMemoryRepoExtractionStateUnknownResume(t *testing.T) {
	repo := NewMemoryRepo()
	if _, err := repo.GetExtractionState(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoCompareAndSetGuard(t *testing.T) {
	repo := NewMemoryRepo()
	seedResume(t, repo, "r1")

	won, err := repo.CompareAndSetExtractionStatus(context.Background(), "r1", StatusProcessing, StatusProcessing)
	if err != nil || !won {
		t.Fatalf("first CAS should win: won=%v err=%v", won, err)
	}
	won, err = repo.CompareAndSetExtractionStatus(context.Background(), "r1", StatusProcessing, StatusProcessing)
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if won {
		t.Fatal("second CAS should be blocked while processing")
	}

	// A terminal state unblocks the guard again.
	if err := repo.SetExtractionState(context.Background(), ExtractionState{ResumeID: "r1", Status: StatusFailed, ErrorMessage: "boom"}); err != nil {
		t.Fatalf("SetExtractionState: %v", err)
	}
	won, err = repo.CompareAndSetExtractionStatus(context.Background(), "r1", StatusProcessing, StatusProcessing)
	if err != nil || !won {
		t.Fatalf("CAS after failure should win: won=%v err=%v", won, err)
	}
}

func TestMemoryRepoCompareAndSetConcurrentSingleWinner(t *testing.T) {
	repo := NewMemoryRepo()
	seedResume(t, repo, "r1")

	const n = 16
	var wg sync.WaitGroup
	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := repo.CompareAndSetExtractionStatus(context.Background(), "r1", StatusProcessing, StatusProcessing)
			if err != nil {
				t.Errorf("CAS: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}
