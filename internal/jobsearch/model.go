package jobsearch

import "context"

// Job is one normalized job listing, independent of which board it came from.
type Job struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	JobURL      string `json:"job_url"`
	DatePosted  string `json:"date_posted"`
	Source      string `json:"source"`
}

// Source is a single job board backend.
type Source interface {
	Name() string
	Search(ctx context.Context, term, location string, limit int) ([]Job, error)
}
