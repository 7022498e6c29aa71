package tailoring

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]Task)}
}

func (r *MemoryRepo) CreateTask(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
	return nil
}

func (r *MemoryRepo) GetTask(ctx context.Context, taskID string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

func (r *MemoryRepo) UpdateTaskStatus(ctx context.Context, taskID, status string, results []Outcome, links []string, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	task.Status = status
	task.Results = results
	task.DownloadLinks = links
	task.ErrorMessage = errMsg
	task.UpdatedAt = time.Now().UTC()
	r.tasks[taskID] = task
	return nil
}
