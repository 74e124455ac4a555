package ports

import (
	"context"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// JobAPI is the dashboard backend's REST surface as the sync engine sees it.
type JobAPI interface {
	// Jobs fetches the snapshot for a time range ("24h", "7d", "30d", "all").
	Jobs(ctx context.Context, rng string) ([]domain.Job, error)
	// JobLogs fetches a job's history, oldest first. limit <= 0 means all.
	JobLogs(ctx context.Context, id int64, limit, offset int) ([]domain.LogEntry, error)
}

// StreamEvent is one delivery from the live channel. Frame is nil for
// connection-state notices; Connected is true when the channel (re)opened.
type StreamEvent struct {
	Frame     *domain.Event
	Connected bool
}

// EventSource is the live update channel. Implementations own reconnection;
// consumers just read Events until the source is closed.
type EventSource interface {
	Connect()
	Disconnect()
	Events() <-chan StreamEvent
}

// PrefStore persists the one user preference that survives restarts.
type PrefStore interface {
	PageSize() int
	SetPageSize(n int)
}
