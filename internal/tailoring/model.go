package tailoring

import (
	"errors"
	"time"
)

// Task lifecycle statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

var (
	ErrNotFound     = errors.New("tailoring task not found")
	ErrInvalidInput = errors.New("invalid input")
)

// JobDescription is one target listing a resume should be tailored to.
type JobDescription struct {
	Title           string   `json:"title"`
	Company         string   `json:"company"`
	Location        string   `json:"location,omitempty"`
	Description     string   `json:"description"`
	Requirements    []string `json:"requirements,omitempty"`
	PreferredSkills []string `json:"preferred_skills,omitempty"`
}

// Outcome is the tailored result for one job in a batch.
type Outcome struct {
	JobTitle        string         `json:"job_title"`
	Company         string         `json:"company"`
	TailoredContent map[string]any `json:"tailored_content"`
	Filename        string         `json:"filename"`
}

// Task is a batch tailoring run over one resume and many job descriptions.
type Task struct {
	ID            string
	ResumeID      string
	Jobs          []JobDescription
	Status        string
	Results       []Outcome
	DownloadLinks []string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
