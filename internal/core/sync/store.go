// Package sync is the client-side synchronization engine: it owns the
// volatile job and log state, reconciles snapshot fetches with incremental
// stream events, and derives the filtered, sorted, paginated view on demand.
package sync

import (
	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// Store is the authoritative in-memory job map. Records are written wholesale
// by snapshot load or upsert; fields are never merged, so the last write for
// an id wins and partial records are never stored.
type Store struct {
	jobs map[int64]domain.Job
}

func NewStore() *Store {
	return &Store{jobs: make(map[int64]domain.Job)}
}

// LoadSnapshot replaces the entire map with the fetched set.
func (s *Store) LoadSnapshot(jobs []domain.Job) {
	next := make(map[int64]domain.Job, len(jobs))
	for _, j := range jobs {
		next[j.ID] = j
	}
	s.jobs = next
}

// Upsert writes or overwrites the record at its id.
func (s *Store) Upsert(j domain.Job) {
	s.jobs[j.ID] = j
}

// Get returns the record for id, if present.
func (s *Store) Get(id int64) (domain.Job, bool) {
	j, ok := s.jobs[id]
	return j, ok
}

// Has reports whether id is present.
func (s *Store) Has(id int64) bool {
	_, ok := s.jobs[id]
	return ok
}

// Len returns the number of stored jobs.
func (s *Store) Len() int {
	return len(s.jobs)
}

// Jobs returns a full snapshot slice in unspecified order. Derivations sort
// it themselves; recomputing from scratch each time keeps derived state free
// of incremental-update bugs.
func (s *Store) Jobs() []domain.Job {
	out := make([]domain.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}
