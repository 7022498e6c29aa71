package resumes

import (
	"errors"
	"time"
)

// Extraction lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// StatusUploaded is the terminal status of a stored resume document itself.
const StatusUploaded = "uploaded"

var (
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Resume is an uploaded resume document.
type Resume struct {
	ID         string
	FileName   string
	StorageKey string
	Status     string
	UploadedAt time.Time
}

// ExtractionState tracks structured extraction progress for one resume.
type ExtractionState struct {
	ResumeID     string
	Status       string
	Data         map[string]any
	ErrorMessage string
	UpdatedAt    time.Time
}
