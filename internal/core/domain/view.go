package domain

import "math"

// StatusFilterAll disables status filtering in a ViewState.
const StatusFilterAll = "all"

// ViewState is the caller-owned display state fed to the view derivations.
// The sync engine consumes it as pure input and never mutates it on its own,
// except for the page-index resets noted on the session.
type ViewState struct {
	StatusFilter string
	Search       string
	Page         int
	PageSize     int
	SelectedJob  int64
	ScopeQuery   string
	Autoscroll   bool
}

// Metrics is a derived aggregate over the full, unfiltered job set. It is
// recomputed on demand and never persisted.
type Metrics struct {
	Total       int `json:"total"`
	Running     int `json:"running"`
	Success     int `json:"success"`
	Failed      int `json:"failed"`
	Pending     int `json:"pending"`
	SuccessRate int `json:"success_rate"`
}

// ComputeMetrics tallies canonical status counts and the rounded success
// percentage. Zero jobs means a zero rate, not a division error.
func ComputeMetrics(jobs []Job) Metrics {
	m := Metrics{Total: len(jobs)}
	for _, j := range jobs {
		switch Canonical(j.Status) {
		case StatusRunning:
			m.Running++
		case StatusSuccess:
			m.Success++
		case StatusFailed:
			m.Failed++
		default:
			m.Pending++
		}
	}
	if m.Total > 0 {
		m.SuccessRate = int(math.Round(float64(m.Success) / float64(m.Total) * 100))
	}
	return m
}
