package domain

import (
	"strings"
	"time"
)

// LogEntry is one streamed or fetched log line. Entries reference a job by
// id; display order is arrival order, not timestamp order, because callback
// timestamps can be skewed.
type LogEntry struct {
	JobID   int64  `json:"job_id,omitempty"`
	TS      string `json:"ts"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// EffectiveLevel returns the severity, defaulting to "info" when the producer
// omitted one.
func (e LogEntry) EffectiveLevel() string {
	if strings.TrimSpace(e.Level) == "" {
		return "info"
	}
	return e.Level
}

// Time parses the entry's timestamp, zero time on failure.
func (e LogEntry) Time() time.Time {
	return ParseTime(e.TS)
}
