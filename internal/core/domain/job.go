package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Job is one automation run as reported by the dashboard backend. Records
// arrive complete; the store overwrites them wholesale and never merges
// individual fields.
type Job struct {
	ID          int64       `json:"id"`
	Name        string      `json:"job_name"`
	Scope       ScopeList   `json:"scope"`
	TriggeredBy string      `json:"triggered_by"`
	Status      string      `json:"status"`
	Progress    RawProgress `json:"progress"`
	StartTime   string      `json:"start_time"`
	EndTime     string      `json:"end_time"`
}

// StartedAt parses the job's start timestamp. Absent or unparsable values
// yield the zero time so such jobs sort to the bottom of the table.
func (j Job) StartedAt() time.Time {
	return ParseTime(j.StartTime)
}

// Finished reports whether the backend has recorded an end time.
func (j Job) Finished() bool {
	return j.EndTime != ""
}

// timeLayouts covers RFC 3339 and the naive ISO timestamps the backend's
// datetime serializer produces.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTime parses a wire timestamp, returning the zero time on failure.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ScopeList is a job's ordered target list. On the wire it is either a
// delimited string (possibly carrying a "group:" or "servers:" marker) or an
// array of strings; both decode to the same parsed form.
type ScopeList []string

var scopeMarkers = []string{"group:", "servers:", "hosts:"}

// ParseScope splits a raw scope string into its non-empty targets. Empty
// input yields an empty list, never an error.
func ParseScope(raw string) ScopeList {
	s := strings.TrimSpace(raw)
	lower := strings.ToLower(s)
	for _, m := range scopeMarkers {
		if strings.HasPrefix(lower, m) {
			s = strings.TrimSpace(s[len(m):])
			break
		}
	}
	if s == "" {
		return ScopeList{}
	}
	parts := strings.Split(s, ",")
	out := make(ScopeList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *ScopeList) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = ParseScope(str)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(b, &arr); err == nil {
		out := make(ScopeList, 0, len(arr))
		for _, t := range arr {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
		*s = out
		return nil
	}
	// Anything else (null, a number) is an absent scope.
	*s = ScopeList{}
	return nil
}

// String renders the list the way the table displays it.
func (s ScopeList) String() string {
	return strings.Join(s, ", ")
}

// RawProgress preserves the wire token of a progress value. The backend sends
// a JSON number, but callback tooling has been seen posting strings such as
// "42%"; normalization happens at read time, not decode time.
type RawProgress string

func (p *RawProgress) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = RawProgress(s)
		return nil
	}
	*p = RawProgress(b)
	return nil
}

func (p RawProgress) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("0"), nil
	}
	if _, err := strconv.ParseFloat(string(p), 64); err == nil {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}
