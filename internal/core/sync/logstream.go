package sync

import (
	"fmt"
	"strings"

	"github.com/jobdeck/jobdeck/internal/core/domain"
)

// LogStream owns the log buffer for the one selected job. Selecting a new job
// discards the buffer and invalidates any fetch still in flight via a
// monotonic generation counter; live entries append only while their job id
// still matches the selection.
type LogStream struct {
	selected int64
	gen      uint64
	entries  []domain.LogEntry
	fetchErr string
}

func NewLogStream() *LogStream {
	return &LogStream{}
}

// Select switches the buffer to job id, clearing entries and any recorded
// error. It returns the generation the caller must tag the historical fetch
// with. id 0 clears the selection without a fetch.
func (l *LogStream) Select(id int64) uint64 {
	l.selected = id
	l.entries = nil
	l.fetchErr = ""
	l.gen++
	return l.gen
}

// Selected returns the current job id, 0 when none.
func (l *LogStream) Selected() int64 {
	return l.selected
}

// ApplyFetch installs a historical fetch result. Results tagged with a stale
// generation belong to a previous selection and are discarded; the return
// value reports whether the result was applied.
func (l *LogStream) ApplyFetch(gen uint64, entries []domain.LogEntry, err error) bool {
	if gen != l.gen || l.selected == 0 {
		return false
	}
	if err != nil {
		l.entries = nil
		l.fetchErr = err.Error()
		return true
	}
	l.entries = append([]domain.LogEntry(nil), entries...)
	l.fetchErr = ""
	return true
}

// Append adds a live entry if it belongs to the selected job. Entries for
// other jobs are dropped; a slow network can deliver them after the user has
// already moved on.
func (l *LogStream) Append(e domain.LogEntry) bool {
	if l.selected == 0 || e.JobID != l.selected {
		return false
	}
	l.entries = append(l.entries, e)
	return true
}

// Entries returns the buffer in arrival order.
func (l *LogStream) Entries() []domain.LogEntry {
	return l.entries
}

// Err returns the recorded fetch error, empty when none. Retry is manual:
// re-selecting the job issues a fresh fetch.
func (l *LogStream) Err() string {
	return l.fetchErr
}

// PlainText serializes the buffer for export, one line per entry, preserving
// buffer order. It does not mutate the buffer.
func (l *LogStream) PlainText() string {
	var b strings.Builder
	for _, e := range l.entries {
		b.WriteString(FormatLogLine(e))
		b.WriteByte('\n')
	}
	return b.String()
}

// ClipboardText is the clipboard form of the export; same content, no
// trailing newline.
func (l *LogStream) ClipboardText() string {
	return strings.TrimSuffix(l.PlainText(), "\n")
}

// FormatLogLine renders one entry as "[localized-timestamp] [LEVEL] message".
// Entries with unparsable timestamps keep their raw wire value.
func FormatLogLine(e domain.LogEntry) string {
	ts := e.TS
	if t := e.Time(); !t.IsZero() {
		ts = t.Local().Format("2006-01-02 15:04:05")
	}
	return fmt.Sprintf("[%s] [%s] %s", ts, strings.ToUpper(e.EffectiveLevel()), e.Message)
}
