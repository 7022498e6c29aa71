package jobsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRemoteOKURL = "https://remoteok.com/api"

const sourceUserAgent = "resume-tailor-backend/1.0 (job search)"

// RemoteOKSource queries the RemoteOK public JSON API.
type RemoteOKSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteOKSource constructs a RemoteOK source. baseURL is overridable for
// tests and proxies; empty means the public API.
func NewRemoteOKSource(baseURL string, client *http.Client) *RemoteOKSource {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultRemoteOKURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RemoteOKSource{baseURL: baseURL, httpClient: client}
}

func (s *RemoteOKSource) Name() string { return "remoteok" }

type remoteOKJob struct {
	Slug        string   `json:"slug"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Tags        []string `json:"tags"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	URL         string   `json:"url"`
}

// Search fetches listings filtered by the query keywords. RemoteOK's API takes
// a single tag parameter, so the most specific query word is used as the tag
// and the rest are matched client-side.
func (s *RemoteOKSource) Search(ctx context.Context, term, location string, limit int) ([]Job, error) {
	fields := strings.Fields(strings.ToLower(term))
	if len(fields) == 0 {
		return nil, fmt.Errorf("search term cannot be empty")
	}

	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("tag", pickTag(fields))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", sourceUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httpClientFrom(ctx, s.httpClient).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remoteok returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}

	jobs, err := parseRemoteOKResponse(body)
	if err != nil {
		return nil, err
	}

	jobs = filterJobs(jobs, term, location)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

// parseRemoteOKResponse parses the RemoteOK JSON array. The first element is
// a legal-notice metadata object and is skipped.
func parseRemoteOKResponse(body []byte) ([]Job, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("remoteok parse: %w", err)
	}
	if len(raw) <= 1 {
		return nil, nil
	}

	var jobs []Job
	for _, item := range raw[1:] {
		var j remoteOKJob
		if err := json.Unmarshal(item, &j); err != nil {
			continue
		}
		if j.Position == "" {
			continue
		}

		jobURL := j.URL
		if jobURL == "" && j.Slug != "" {
			jobURL = "https://remoteok.com/remote-jobs/" + j.Slug
		}

		posted := ""
		if j.Date != "" {
			if t, err := time.Parse(time.RFC3339, j.Date); err == nil {
				posted = t.UTC().Format("2006-01-02")
			} else {
				posted = j.Date
			}
		}

		desc := j.Description
		if desc == "" {
			desc = strings.Join(j.Tags, ", ")
		}

		jobs = append(jobs, Job{
			Title:       j.Position,
			Company:     j.Company,
			Location:    orDefault(j.Location, "Remote"),
			Description: desc,
			JobURL:      jobURL,
			DatePosted:  posted,
			Source:      "remoteok",
		})
	}
	return jobs, nil
}

var tagStopWords = map[string]bool{
	"senior": true, "junior": true, "lead": true, "staff": true,
	"principal": true, "remote": true, "job": true, "jobs": true,
	"developer": true, "engineer": true, "position": true, "role": true,
	"and": true, "or": true, "the": true, "for": true, "with": true,
}

// pickTag picks the most specific query word for the RemoteOK tag filter.
func pickTag(fields []string) string {
	for _, f := range fields {
		if !tagStopWords[f] && len(f) > 2 {
			return f
		}
	}
	return fields[0]
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
