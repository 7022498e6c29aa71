package jobsearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultWWRBoardURL = "https://weworkremotely.com/remote-jobs/search"

// WWRSource scrapes the We Work Remotely search page.
type WWRSource struct {
	boardURL   string
	httpClient *http.Client
}

// NewWWRSource constructs a We Work Remotely source. boardURL is overridable
// for tests; empty means the public board.
func NewWWRSource(boardURL string, client *http.Client) *WWRSource {
	if strings.TrimSpace(boardURL) == "" {
		boardURL = defaultWWRBoardURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &WWRSource{boardURL: boardURL, httpClient: client}
}

func (s *WWRSource) Name() string { return "weworkremotely" }

// Search fetches the board's search page for the term and parses the listing
// markup. The board has no location filter, so location is matched client-side.
func (s *WWRSource) Search(ctx context.Context, term, location string, limit int) ([]Job, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}

	u, err := url.Parse(s.boardURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("term", term)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", sourceUserAgent)

	resp, err := httpClientFrom(ctx, s.httpClient).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weworkremotely returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("weworkremotely parse: %w", err)
	}

	jobs := parseWWRListings(doc, u)
	jobs = filterJobs(jobs, term, location)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func parseWWRListings(doc *goquery.Document, base *url.URL) []Job {
	var jobs []Job
	doc.Find("section.jobs li").Each(func(_ int, li *goquery.Selection) {
		anchor := li.Find("a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return
		}
		title := strings.TrimSpace(li.Find("span.title").First().Text())
		if title == "" {
			return
		}
		company := strings.TrimSpace(li.Find("span.company").First().Text())
		region := strings.TrimSpace(li.Find("span.region").First().Text())

		jobURL := href
		if ref, err := url.Parse(href); err == nil {
			jobURL = base.ResolveReference(ref).String()
		}

		jobs = append(jobs, Job{
			Title:       title,
			Company:     company,
			Location:    orDefault(region, "Anywhere"),
			Description: strings.Join(strings.Fields(li.Text()), " "),
			JobURL:      jobURL,
			Source:      "weworkremotely",
		})
	})
	return jobs
}
