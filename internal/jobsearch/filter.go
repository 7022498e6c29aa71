package jobsearch

import "strings"

// filterJobs keeps listings whose text matches the search keywords. All
// keywords must match; when nothing survives the AND pass, any-keyword
// matching is used instead so a broad query still returns results. A
// non-empty location additionally requires a substring match.
func filterJobs(jobs []Job, term, location string) []Job {
	keywords := strings.Fields(strings.ToLower(term))
	loc := strings.ToLower(strings.TrimSpace(location))

	matchLocation := func(j Job) bool {
		if loc == "" {
			return true
		}
		jl := strings.ToLower(j.Location)
		return jl == "" || strings.Contains(jl, loc) ||
			strings.Contains(jl, "remote") || strings.Contains(jl, "anywhere") ||
			strings.Contains(jl, "worldwide")
	}

	if len(keywords) == 0 {
		var out []Job
		for _, j := range jobs {
			if matchLocation(j) {
				out = append(out, j)
			}
		}
		return out
	}

	haystack := func(j Job) string {
		return strings.ToLower(j.Title + " " + j.Company + " " + j.Description)
	}

	var all []Job
	for _, j := range jobs {
		if !matchLocation(j) {
			continue
		}
		h := haystack(j)
		matched := true
		for _, kw := range keywords {
			if !strings.Contains(h, kw) {
				matched = false
				break
			}
		}
		if matched {
			all = append(all, j)
		}
	}
	if len(all) > 0 {
		return all
	}

	var any []Job
	for _, j := range jobs {
		if !matchLocation(j) {
			continue
		}
		h := haystack(j)
		for _, kw := range keywords {
			if strings.Contains(h, kw) {
				any = append(any, j)
				break
			}
		}
	}
	return any
}
