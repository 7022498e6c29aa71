package resumes

import "context"

// Repo persists resumes and their extraction state.
type Repo interface {
	CreateResume(ctx context.Context, r Resume) error
	GetResume(ctx context.Context, resumeID string) (Resume, error)

	// SetExtractionState upserts the extraction record for a resume.
	SetExtractionState(ctx context.Context, state ExtractionState) error
	GetExtractionState(ctx context.Context, resumeID string) (ExtractionState, error)

	// CompareAndSetExtractionStatus atomically moves the extraction record to
	// status `to` unless the current status is one of `unless`. A missing
	// record counts as StatusPending. Returns false when the guard blocked
	// the transition, so concurrent triggers race on exactly one winner.
	CompareAndSetExtractionStatus(ctx context.Context, resumeID, to string, unless ...string) (bool, error)
}
