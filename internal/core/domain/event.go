package domain

// Stream event types shared by the live channel's producer and consumer.
const (
	EventJobStart    = "job_start"
	EventJobProgress = "job_progress"
	EventJobComplete = "job_complete"
	EventJobLog      = "job_log"
)

// Event is one decoded frame from the live channel. Exactly one of Job or
// Log is set, depending on Type.
type Event struct {
	Type string    `json:"type"`
	Job  *Job      `json:"job,omitempty"`
	Log  *LogEntry `json:"log,omitempty"`
}

// JobEvent reports whether the event carries a full job record.
func (e Event) JobEvent() bool {
	switch e.Type {
	case EventJobStart, EventJobProgress, EventJobComplete:
		return true
	}
	return false
}
