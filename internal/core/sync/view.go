package sync

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// View is one derived page of the job table.
type View struct {
	Jobs      []domain.Job
	Page      int
	PageCount int
	Total     int // filtered count, before pagination
}

// BuildView filters, sorts and paginates a store snapshot against the given
// view state. Pure: neither input is mutated.
func BuildView(jobs []domain.Job, vs domain.ViewState) View {
	filtered := filterJobs(jobs, vs)
	sortJobs(filtered)
	return paginate(filtered, vs)
}

func filterJobs(jobs []domain.Job, vs domain.ViewState) []domain.Job {
	status := strings.ToLower(strings.TrimSpace(vs.StatusFilter))
	search := strings.ToLower(strings.TrimSpace(vs.Search))
	out := make([]domain.Job, 0, len(jobs))
	for _, j := range jobs {
		if status != "" && status != domain.StatusFilterAll &&
			domain.Canonical(j.Status) != domain.CanonicalStatus(status) {
			continue
		}
		if search != "" && !strings.Contains(searchText(j), search) {
			continue
		}
		out = append(out, j)
	}
	return out
}

// searchText is the haystack for free-text filtering: name, triggering
// principal, scope and id, concatenated.
func searchText(j domain.Job) string {
	return strings.ToLower(strings.Join([]string{
		j.Name, j.TriggeredBy, j.Scope.String(), strconv.FormatInt(j.ID, 10),
	}, " "))
}

// sortJobs orders newest first. Unparsable start times read as the zero time
// and sink to the bottom.
func sortJobs(jobs []domain.Job) {
	sort.SliceStable(jobs, func(a, b int) bool {
		return jobs[a].StartedAt().After(jobs[b].StartedAt())
	})
}

func paginate(jobs []domain.Job, vs domain.ViewState) View {
	size := vs.PageSize
	if size <= 0 {
		// Page size 0 is the "unpaged" sentinel.
		return View{Jobs: jobs, Page: 0, PageCount: 1, Total: len(jobs)}
	}
	count := (len(jobs) + size - 1) / size
	if count == 0 {
		count = 1
	}
	page := vs.Page
	if page >= count {
		page = count - 1
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	end := start + size
	if end > len(jobs) {
		end = len(jobs)
	}
	return View{Jobs: jobs[start:end], Page: page, PageCount: count, Total: len(jobs)}
}

// ScopeMatch is one scope target that matched the sub-filter, with the span
// to highlight. Start is -1 when no sub-filter is active.
type ScopeMatch struct {
	Target string
	Start  int
	Length int
}

// FilterScope applies the case-insensitive scope sub-filter. An empty query
// is inactive and returns every target unhighlighted; otherwise only matching
// targets are returned, each with the span of the first match so presentation
// can render emphasis without re-deriving it.
func FilterScope(targets []string, query string) []ScopeMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ScopeMatch, 0, len(targets))
	if q == "" {
		for _, t := range targets {
			out = append(out, ScopeMatch{Target: t, Start: -1})
		}
		return out
	}
	for _, t := range targets {
		if idx := strings.Index(strings.ToLower(t), q); idx >= 0 {
			out = append(out, ScopeMatch{Target: t, Start: idx, Length: len(q)})
		}
	}
	return out
}
