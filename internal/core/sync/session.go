package sync

import (
	"context"

	"github.com/jobdeck/jobdeck/internal/core/domain"
	"github.com/jobdeck/jobdeck/internal/core/ports"
	"github.com/jobdeck/jobdeck/internal/core/logger"
)

// DefaultRange is the snapshot window requested when the caller has no
// preference.
const DefaultRange = "24h"

type fetchKind int

const (
	fetchSnapshot fetchKind = iota
	fetchLogs
)

// fetchResult is the completion of one async fetch, tagged with the
// generation that was current when it was launched. Stale results are
// discarded on arrival.
type fetchResult struct {
	kind    fetchKind
	gen     uint64
	jobs    []domain.Job
	entries []domain.LogEntry
	err     error
}

// Session is the event loop that owns all volatile dashboard state. Every
// mutation happens on the Run goroutine, reacting to stream events, fetch
// completions and posted commands; reads round-trip through the same loop, so
// no locking is needed anywhere in the core.
type Session struct {
	api    ports.JobAPI
	source ports.EventSource
	prefs  ports.PrefStore

	store *Store
	logs  *LogStream
	state domain.ViewState
	rng   string

	listErr string
	snapGen uint64
	scroll  bool

	ctx     context.Context
	fetchc  chan fetchResult
	cmdc    chan func()
	changed chan struct{}
}

func NewSession(api ports.JobAPI, source ports.EventSource, prefs ports.PrefStore) *Session {
	s := &Session{
		api:     api,
		source:  source,
		prefs:   prefs,
		store:   NewStore(),
		logs:    NewLogStream(),
		rng:     DefaultRange,
		fetchc:  make(chan fetchResult, 8),
		cmdc:    make(chan func(), 16),
		changed: make(chan struct{}, 1),
	}
	s.state.StatusFilter = domain.StatusFilterAll
	s.state.PageSize = prefs.PageSize()
	s.state.Autoscroll = true
	return s
}

// Run drives the session until ctx is cancelled. It connects the live
// channel, issues the initial snapshot fetch, and then applies events in
// receipt order.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	s.source.Connect()
	defer s.source.Disconnect()
	s.refreshJobs()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.source.Events():
			if !ok {
				return
			}
			s.handleStream(ev)
		case res := <-s.fetchc:
			s.applyFetch(res)
		case cmd := <-s.cmdc:
			cmd()
		}
	}
}

// Changes signals (coalesced) that derived state may differ from the last
// Snapshot call. Presentation re-renders on receipt.
func (s *Session) Changes() <-chan struct{} {
	return s.changed
}

func (s *Session) mark() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Session) handleStream(ev ports.StreamEvent) {
	if ev.Frame == nil {
		if ev.Connected {
			// A (re)opened channel may have missed events; heal with a
			// fresh snapshot.
			s.refreshJobs()
		}
		return
	}
	frame := *ev.Frame
	switch {
	case frame.JobEvent():
		if frame.Job == nil {
			logger.Warn("job event without job payload", "type", frame.Type)
			return
		}
		s.store.Upsert(*frame.Job)
		s.mark()
	case frame.Type == domain.EventJobLog:
		if frame.Log == nil {
			logger.Warn("log event without log payload")
			return
		}
		if s.logs.Append(*frame.Log) {
			if s.state.Autoscroll {
				s.scroll = true
			}
			s.mark()
		}
	default:
		logger.Debug("ignoring unknown stream event", "type", frame.Type)
	}
}

func (s *Session) applyFetch(res fetchResult) {
	switch res.kind {
	case fetchSnapshot:
		if res.gen != s.snapGen {
			return
		}
		if res.err != nil {
			s.listErr = res.err.Error()
			s.mark()
			return
		}
		s.listErr = ""
		s.store.LoadSnapshot(res.jobs)
		if s.state.SelectedJob != 0 && !s.store.Has(s.state.SelectedJob) {
			// The selected job fell out of range; drop selection and buffer.
			s.state.SelectedJob = 0
			s.logs.Select(0)
		}
		s.mark()
	case fetchLogs:
		if s.logs.ApplyFetch(res.gen, res.entries, res.err) {
			s.mark()
		}
	}
}

func (s *Session) refreshJobs() {
	s.snapGen++
	gen := s.snapGen
	rng := s.rng
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		jobs, err := s.api.Jobs(ctx, rng)
		s.fetchc <- fetchResult{kind: fetchSnapshot, gen: gen, jobs: jobs, err: err}
	}()
}

func (s *Session) selectJob(id int64) {
	s.state.SelectedJob = id
	gen := s.logs.Select(id)
	s.mark()
	if id == 0 {
		return
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		entries, err := s.api.JobLogs(ctx, id, 0, 0)
		s.fetchc <- fetchResult{kind: fetchLogs, gen: gen, entries: entries, err: err}
	}()
}

// Snapshot is the full derived state handed to presentation.
type Snapshot struct {
	View      View
	Metrics   domain.Metrics
	State     domain.ViewState
	Selected  *domain.Job
	Scope     []ScopeMatch
	Logs      []domain.LogEntry
	LogError  string
	ListError string
	// Scroll requests a scroll-to-bottom; it is consumed by the read.
	Scroll bool
}

func (s *Session) snapshot() Snapshot {
	jobs := s.store.Jobs()
	snap := Snapshot{
		View:      BuildView(jobs, s.state),
		Metrics:   domain.ComputeMetrics(jobs),
		State:     s.state,
		Logs:      s.logs.Entries(),
		LogError:  s.logs.Err(),
		ListError: s.listErr,
		Scroll:    s.scroll,
	}
	s.scroll = false
	if j, ok := s.store.Get(s.state.SelectedJob); ok {
		snap.Selected = &j
		snap.Scope = FilterScope(j.Scope, s.state.ScopeQuery)
	}
	return snap
}

// do runs fn on the loop goroutine and waits for it.
func (s *Session) do(fn func()) {
	done := make(chan struct{})
	s.cmdc <- func() {
		fn()
		close(done)
	}
	<-done
}

// Snapshot derives the current view. Safe from any goroutine while Run is
// active.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	s.do(func() { snap = s.snapshot() })
	return snap
}

// ExportLogs returns the plain-text serialization of the current buffer.
func (s *Session) ExportLogs() string {
	var out string
	s.do(func() { out = s.logs.PlainText() })
	return out
}

// ClipboardLogs returns the clipboard form of the current buffer.
func (s *Session) ClipboardLogs() string {
	var out string
	s.do(func() { out = s.logs.ClipboardText() })
	return out
}

// SelectJob switches the detail panel to id and fetches its history. 0
// clears the selection.
func (s *Session) SelectJob(id int64) {
	s.do(func() { s.selectJob(id) })
}

// RetryLogs re-issues the historical fetch for the current selection after a
// failure.
func (s *Session) RetryLogs() {
	s.do(func() { s.selectJob(s.state.SelectedJob) })
}

// SetStatusFilter updates the status filter and resets to the first page.
func (s *Session) SetStatusFilter(f string) {
	s.do(func() {
		s.state.StatusFilter = f
		s.state.Page = 0
		s.mark()
	})
}

// SetSearch updates the free-text filter and resets to the first page.
func (s *Session) SetSearch(q string) {
	s.do(func() {
		s.state.Search = q
		s.state.Page = 0
		s.mark()
	})
}

// SetScopeQuery updates the scope sub-filter for the detail panel.
func (s *Session) SetScopeQuery(q string) {
	s.do(func() {
		s.state.ScopeQuery = q
		s.mark()
	})
}

// SetPage moves to page n; the derivation clamps it into range.
func (s *Session) SetPage(n int) {
	s.do(func() {
		s.state.Page = n
		s.mark()
	})
}

// SetPageSize changes the page size, resets to the first page, and persists
// the choice best-effort.
func (s *Session) SetPageSize(n int) {
	s.do(func() {
		s.state.PageSize = n
		s.state.Page = 0
		s.prefs.SetPageSize(n)
		s.mark()
	})
}

// SetAutoscroll toggles follow-the-tail behavior for the log panel.
func (s *Session) SetAutoscroll(on bool) {
	s.do(func() {
		s.state.Autoscroll = on
		s.mark()
	})
}

// SetRange switches the snapshot window and refetches.
func (s *Session) SetRange(rng string) {
	s.do(func() {
		s.rng = rng
		s.refreshJobs()
	})
}

// Refresh forces a snapshot refetch, e.g. to dismiss a list error by retry.
func (s *Session) Refresh() {
	s.do(func() { s.refreshJobs() })
}
