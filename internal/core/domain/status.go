package domain

import (
	"math"
	"strconv"
	"strings"
)

// CanonicalStatus is the normalized form of the free-text status strings the
// backend and the automation tooling emit.
type CanonicalStatus string

const (
	StatusRunning CanonicalStatus = "running"
	StatusSuccess CanonicalStatus = "success"
	StatusFailed  CanonicalStatus = "failed"
	StatusPending CanonicalStatus = "pending"
)

// AllStatuses lists every canonical value, in display order.
var AllStatuses = []CanonicalStatus{StatusRunning, StatusSuccess, StatusFailed, StatusPending}

// statusRules are tested in order; the first substring hit wins.
var statusRules = []struct {
	needles []string
	status  CanonicalStatus
}{
	{[]string{"running", "in-progress", "in progress"}, StatusRunning},
	{[]string{"success", "complete", "ok"}, StatusSuccess},
	{[]string{"fail", "error"}, StatusFailed},
	{[]string{"pending", "waiting", "queued"}, StatusPending},
}

// Canonical maps any raw status string to exactly one canonical value.
// Unrecognized input falls back to pending.
func Canonical(raw string) CanonicalStatus {
	s := strings.ToLower(raw)
	for _, rule := range statusRules {
		for _, n := range rule.needles {
			if strings.Contains(s, n) {
				return rule.status
			}
		}
	}
	return StatusPending
}

// Terminal reports whether the status marks a finished job.
func (s CanonicalStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// NormalizeProgress turns a raw progress token into an integer percentage.
// It accepts plain numbers and "%"-suffixed strings; bare values in [0,1]
// are read as fractions and rescaled. Unparsable input yields 0.
func NormalizeProgress(raw string) int {
	s := strings.TrimSpace(raw)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if !percent && f >= 0 && f <= 1 {
		f *= 100
	}
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return int(math.Round(f))
}

// EffectiveProgress is the percentage shown for a job. A running job is held
// at 99 until its terminal event arrives; a successful job always reads 100.
func EffectiveProgress(j Job) int {
	p := NormalizeProgress(string(j.Progress))
	switch Canonical(j.Status) {
	case StatusSuccess:
		return 100
	case StatusRunning:
		if p > 99 {
			p = 99
		}
	}
	return p
}
