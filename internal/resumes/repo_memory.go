package resumes

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu          sync.RWMutex
	resumes     map[string]Resume
	extractions map[string]ExtractionState
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		resumes:     make(map[string]Resume),
		extractions: make(map[string]ExtractionState),
	}
}

func (r *MemoryRepo) CreateResume(ctx context.Context, res Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumes[res.ID] = res
	return nil
}

func (r *MemoryRepo) GetResume(ctx context.Context, resumeID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resumes[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return res, nil
}

func (r *MemoryRepo) SetExtractionState(ctx context.Context, state ExtractionState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resumes[state.ResumeID]; !ok {
		return ErrNotFound
	}
	state.UpdatedAt = time.Now().UTC()
	r.extractions[state.ResumeID] = state
	return nil
}

func (r *MemoryRepo) GetExtractionState(ctx context.Context, resumeID string) (ExtractionState, error) {
	if err := ctx.Err(); err != nil {
		return ExtractionState{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.resumes[resumeID]; !ok {
		return ExtractionState{}, ErrNotFound
	}
	state, ok := r.extractions[resumeID]
	if !ok {
		return ExtractionState{ResumeID: resumeID, Status: StatusPending}, nil
	}
	return state, nil
}

func (r *MemoryRepo) CompareAndSetExtractionStatus(ctx context.Context, resumeID, to string, unless ...string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resumes[resumeID]; !ok {
		return false, ErrNotFound
	}
	current := StatusPending
	if state, ok := r.extractions[resumeID]; ok {
		current = state.Status
	}
	for _, blocked := range unless {
		if current == blocked {
			return false, nil
		}
	}
	r.extractions[resumeID] = ExtractionState{
		ResumeID:  resumeID,
		Status:    to,
		UpdatedAt: time.Now().UTC(),
	}
	return true, nil
}
