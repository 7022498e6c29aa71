package jobsearch

import (
	"context"
	"fmt"

	"resume-tailor-backend/internal/shared/telemetry"
)

// Service aggregates job listings across the configured sources.
type Service struct {
	sources []Source
}

// NewService wires the sources the service will query, in order.
func NewService(sources ...Source) *Service {
	return &Service{sources: sources}
}

// Search queries every source and merges the results up to limit. A source
// failure is logged and skipped; an error is returned only when every source
// fails.
func (s *Service) Search(ctx context.Context, term, location string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		merged  []Job
		failed  int
		lastErr error
	)
	for _, src := range s.sources {
		jobs, err := src.Search(ctx, term, location, limit-len(merged))
		if err != nil {
			failed++
			lastErr = err
			telemetry.Warn("jobsearch.source_failed", map[string]any{
				"source": src.Name(),
				"error":  err.Error(),
			})
			continue
		}
		merged = append(merged, jobs...)
		if len(merged) >= limit {
			merged = merged[:limit]
			break
		}
	}

	if failed == len(s.sources) && len(s.sources) > 0 {
		return nil, fmt.Errorf("all job sources failed: %w", lastErr)
	}

	telemetry.Info("jobsearch.complete", map[string]any{
		"term":     term,
		"location": location,
		"results":  len(merged),
	})
	return merged, nil
}
