package sync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobdeck/jobdeck/internal/core/domain"
	"github.com/jobdeck/jobdeck/internal/core/ports"
)

type fakeAPI struct {
	mu      sync.Mutex
	jobs    []domain.Job
	jobsErr error
	logs    map[int64][]domain.LogEntry
	logsErr error
}

func (f *fakeAPI) Jobs(ctx context.Context, rng string) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.jobsErr != nil {
		return nil, f.jobsErr
	}
	return append([]domain.Job(nil), f.jobs...), nil
}

func (f *fakeAPI) JobLogs(ctx context.Context, id int64, limit, offset int) ([]domain.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.logsErr != nil {
		return nil, f.logsErr
	}
	return append([]domain.LogEntry(nil), f.logs[id]...), nil
}

type fakeSource struct {
	events chan ports.StreamEvent
}

func newFakeSource() *fakeSource {
	return &fakeSource{events: make(chan ports.StreamEvent, 16)}
}

func (f *fakeSource) Connect()    {}
func (f *fakeSource) Disconnect() {}

func (f *fakeSource) Events() <-chan ports.StreamEvent { return f.events }

type fakePrefs struct {
	mu   sync.Mutex
	size int
	sets []int
}

func (f *fakePrefs) PageSize() int {
	if f.size == 0 {
		return 20
	}
	return f.size
}

func (f *fakePrefs) SetPageSize(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets = append(f.sets, n)
}

func newTestSession(api *fakeAPI) (*Session, *fakeSource, *fakePrefs) {
	src := newFakeSource()
	p := &fakePrefs{}
	return NewSession(api, src, p), src, p
}

func frame(ev domain.Event) ports.StreamEvent {
	return ports.StreamEvent{Frame: &ev}
}

func TestSessionJobLifecycle(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{})

	s.handleStream(frame(domain.Event{Type: domain.EventJobStart, Job: &domain.Job{
		ID: 7, Name: "patch", Status: "queued",
	}}))
	j, ok := s.store.Get(7)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPending, domain.Canonical(j.Status))

	s.handleStream(frame(domain.Event{Type: domain.EventJobProgress, Job: &domain.Job{
		ID: 7, Name: "patch", Status: "running", Progress: "0.42",
	}}))
	j, _ = s.store.Get(7)
	assert.Equal(t, 42, domain.EffectiveProgress(j))

	s.handleStream(frame(domain.Event{Type: domain.EventJobComplete, Job: &domain.Job{
		ID: 7, Name: "patch", Status: "success", Progress: "100",
		EndTime: "2026-08-27T10:30:00Z",
	}}))
	j, _ = s.store.Get(7)
	assert.Equal(t, 100, domain.EffectiveProgress(j))
	assert.True(t, j.Finished())
}

func TestSessionLogRouting(t *testing.T) {
	api := &fakeAPI{logs: map[int64][]domain.LogEntry{}}
	s, _, _ := newTestSession(api)

	s.selectJob(7)
	res := <-s.fetchc
	s.applyFetch(res)

	s.handleStream(frame(domain.Event{Type: domain.EventJobLog, Log: &domain.LogEntry{JobID: 7, Message: "a"}}))
	s.handleStream(frame(domain.Event{Type: domain.EventJobLog, Log: &domain.LogEntry{JobID: 7, Message: "b"}}))
	// Event for job 9 while 7 is selected: dropped, buffer unchanged.
	s.handleStream(frame(domain.Event{Type: domain.EventJobLog, Log: &domain.LogEntry{JobID: 9, Message: "x"}}))

	entries := s.logs.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Message)
	assert.Equal(t, "b", entries[1].Message)
}

func TestSessionLateLogFetchDiscarded(t *testing.T) {
	api := &fakeAPI{logs: map[int64][]domain.LogEntry{
		7: {{JobID: 7, Message: "from-seven"}},
		9: {{JobID: 9, Message: "from-nine"}},
	}}
	s, _, _ := newTestSession(api)

	s.selectJob(7)
	resFor7 := <-s.fetchc
	s.selectJob(9)
	resFor9 := <-s.fetchc

	// The response for 7 arrives after the user switched to 9.
	s.applyFetch(resFor7)
	assert.Empty(t, s.logs.Entries())

	s.applyFetch(resFor9)
	entries := s.logs.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "from-nine", entries[0].Message)
}

func TestSessionSnapshotClearsVanishedSelection(t *testing.T) {
	api := &fakeAPI{jobs: []domain.Job{{ID: 7, Name: "patch"}}}
	s, _, _ := newTestSession(api)

	s.refreshJobs()
	s.applyFetch(<-s.fetchc)
	s.selectJob(7)
	s.applyFetch(<-s.fetchc)

	// The next snapshot no longer contains job 7.
	api.mu.Lock()
	api.jobs = nil
	api.mu.Unlock()
	s.refreshJobs()
	s.applyFetch(<-s.fetchc)

	assert.Equal(t, int64(0), s.state.SelectedJob)
	assert.Empty(t, s.logs.Entries())
	assert.Equal(t, 0, s.store.Len())
}

func TestSessionStaleSnapshotDiscarded(t *testing.T) {
	api := &fakeAPI{jobs: []domain.Job{{ID: 1}}}
	s, _, _ := newTestSession(api)

	s.refreshJobs()
	stale := <-s.fetchc

	api.mu.Lock()
	api.jobs = []domain.Job{{ID: 2}, {ID: 3}}
	api.mu.Unlock()
	s.refreshJobs()
	fresh := <-s.fetchc

	s.applyFetch(fresh)
	s.applyFetch(stale) // must be a no-op

	assert.Equal(t, 2, s.store.Len())
	assert.True(t, s.store.Has(2))
}

func TestSessionSnapshotErrorSurfaced(t *testing.T) {
	api := &fakeAPI{jobsErr: errors.New("backend returned 503")}
	s, _, _ := newTestSession(api)

	s.refreshJobs()
	s.applyFetch(<-s.fetchc)
	assert.Contains(t, s.listErr, "503")

	// A later success clears the error without user action.
	api.mu.Lock()
	api.jobsErr = nil
	api.mu.Unlock()
	s.refreshJobs()
	s.applyFetch(<-s.fetchc)
	assert.Empty(t, s.listErr)
}

func TestSessionConnectedNoticeRefetches(t *testing.T) {
	api := &fakeAPI{jobs: []domain.Job{{ID: 42}}}
	s, _, _ := newTestSession(api)

	before := s.snapGen
	s.handleStream(ports.StreamEvent{Connected: true})
	assert.Equal(t, before+1, s.snapGen)
	s.applyFetch(<-s.fetchc)
	assert.True(t, s.store.Has(42))
}

func TestSessionAutoscrollRequest(t *testing.T) {
	s, _, _ := newTestSession(&fakeAPI{logs: map[int64][]domain.LogEntry{}})
	s.selectJob(7)
	s.applyFetch(<-s.fetchc)

	s.handleStream(frame(domain.Event{Type: domain.EventJobLog, Log: &domain.LogEntry{JobID: 7, Message: "a"}}))
	snap := s.snapshot()
	assert.True(t, snap.Scroll)
	// The request is consumed by the read.
	assert.False(t, s.snapshot().Scroll)

	s.state.Autoscroll = false
	s.handleStream(frame(domain.Event{Type: domain.EventJobLog, Log: &domain.LogEntry{JobID: 7, Message: "b"}}))
	assert.False(t, s.snapshot().Scroll)
}

func TestSessionPublicAPI(t *testing.T) {
	api := &fakeAPI{
		jobs: []domain.Job{
			{ID: 7, Name: "patch", Status: "running", Scope: domain.ScopeList{"web01", "db01"}, StartTime: "2026-08-27T10:00:00Z"},
			{ID: 8, Name: "backup", Status: "success", StartTime: "2026-08-27T11:00:00Z"},
		},
		logs: map[int64][]domain.LogEntry{7: {{JobID: 7, Message: "hello"}}},
	}
	src := newFakeSource()
	p := &fakePrefs{}
	s := NewSession(api, src, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// The initial snapshot lands without prodding.
	require.Eventually(t, func() bool {
		return s.Snapshot().Metrics.Total == 2
	}, time.Second, 5*time.Millisecond)

	s.SelectJob(7)
	require.Eventually(t, func() bool {
		return len(s.Snapshot().Logs) == 1
	}, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, int64(7), snap.Selected.ID)
	assert.Len(t, snap.Scope, 2)

	s.SetScopeQuery("web")
	assert.Len(t, s.Snapshot().Scope, 1)

	s.SetPage(5)
	s.SetStatusFilter("running")
	snap = s.Snapshot()
	assert.Equal(t, 0, snap.State.Page, "filter change resets the page")
	assert.Equal(t, 1, snap.View.Total)
	// Metrics stay computed over the unfiltered store.
	assert.Equal(t, 2, snap.Metrics.Total)

	s.SetPageSize(50)
	p.mu.Lock()
	sets := append([]int(nil), p.sets...)
	p.mu.Unlock()
	assert.Equal(t, []int{50}, sets)

	assert.Contains(t, s.ExportLogs(), "hello")

	cancel()
	<-done
}
