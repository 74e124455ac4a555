// Package ws maintains the one logical live-update connection to the
// dashboard backend. Callers never see whether the underlying socket is
// currently up; failures degrade to staleness and heal via reconnect.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jobdeck/jobdeck/internal/core/domain"
	"github.com/jobdeck/jobdeck/internal/core/logger"
	"github.com/jobdeck/jobdeck/internal/core/ports"
)

// DefaultReconnectDelay is the fixed pause before a reconnect attempt.
// Deliberately not exponential; the peer is our own backend.
const DefaultReconnectDelay = 3 * time.Second

// State names the connection lifecycle for logging and tests.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	}
	return "unknown"
}

// Conn is the slice of *websocket.Conn the manager needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens one connection attempt.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

type gorillaDialer struct{}

func (gorillaDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Manager owns at most one live socket plus at most one pending reconnect
// timer. Every attempt bumps a generation counter; callbacks from a stale
// socket or timer check the counter and bow out, so a manual Connect during a
// pending reconnect never doubles up.
type Manager struct {
	url      string
	dialer   Dialer
	delay    time.Duration
	clientID string

	mu    sync.Mutex
	state State
	conn  Conn
	retry *time.Timer
	gen   uint64

	events chan ports.StreamEvent
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer substitutes the transport, used by tests.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithReconnectDelay overrides the fixed reconnect pause.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

func New(url string, opts ...Option) *Manager {
	m := &Manager{
		url:      url,
		dialer:   gorillaDialer{},
		delay:    DefaultReconnectDelay,
		clientID: uuid.NewString(),
		events:   make(chan ports.StreamEvent, 64),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Events delivers decoded frames and connection notices in receipt order.
func (m *Manager) Events() <-chan ports.StreamEvent {
	return m.events
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect is the idempotent entry point: it tears down any existing socket
// and pending timer, then starts a fresh attempt immediately.
func (m *Manager) Connect() {
	m.mu.Lock()
	m.stopRetryLocked()
	m.closeConnLocked()
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.mu.Unlock()
	go m.dial(gen)
}

// Disconnect closes the socket and cancels any pending reconnect. No further
// attempts happen until Connect is called again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateClosing
	m.stopRetryLocked()
	m.gen++
	m.closeConnLocked()
	m.state = StateIdle
}

func (m *Manager) dial(gen uint64) {
	conn, err := m.dialer.Dial(context.Background(), m.url)
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		m.state = StateReconnecting
		m.scheduleLocked(gen)
		m.mu.Unlock()
		logger.Warn("live channel dial failed", "error", err, "retry_in", m.delay)
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()

	// Handshake; the peer ignores the content and sends no reply. A write
	// failure here surfaces as a read error in the pump.
	hello, _ := json.Marshal(map[string]string{"type": "hello", "client_id": m.clientID})
	if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
		logger.Warn("handshake write failed", "error", err)
	}

	m.deliver(ports.StreamEvent{Connected: true})
	go m.readPump(gen, conn)
}

func (m *Manager) readPump(gen uint64, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.pumpClosed(gen, err)
			return
		}
		var frame domain.Event
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		m.deliver(ports.StreamEvent{Frame: &frame})
	}
}

// pumpClosed handles an unexpected close or read error. Exactly one
// reconnect is scheduled; a pump from a superseded generation does nothing.
func (m *Manager) pumpClosed(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != StateOpen {
		return
	}
	logger.Warn("live channel closed", "error", err, "retry_in", m.delay)
	m.closeConnLocked()
	m.state = StateReconnecting
	m.scheduleLocked(gen)
}

func (m *Manager) scheduleLocked(gen uint64) {
	m.stopRetryLocked()
	m.retry = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		current := gen == m.gen && m.state == StateReconnecting
		m.mu.Unlock()
		if current {
			m.Connect()
		}
	})
}

func (m *Manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

func (m *Manager) closeConnLocked() {
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

// deliver hands an event to the consumer without ever blocking a pump; if the
// consumer has fallen this far behind, dropping is the tolerated failure mode
// and the next snapshot fetch repairs the view.
func (m *Manager) deliver(ev ports.StreamEvent) {
	select {
	case m.events <- ev:
	default:
		logger.Warn("event buffer full, dropping frame")
	}
}
