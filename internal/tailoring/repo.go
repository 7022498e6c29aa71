package tailoring

import "context"

// Repo persists tailoring tasks.
type Repo interface {
	CreateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (Task, error)

	// UpdateTaskStatus moves a task through its lifecycle, replacing results,
	// download links and the error message as a unit.
	UpdateTaskStatus(ctx context.Context, taskID, status string, results []Outcome, links []string, errMsg string) error
}
