// Package link keeps the serial endpoint alive and turns its byte stream into lines.
package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/models"

	"github.com/jonboulle/clockwork"
	"go.bug.st/serial"
)

var (
	ErrAlreadyRunning = errors.New("link manager already running")
	ErrNotConnected   = errors.New("link not connected")
	ErrStopTimeout    = errors.New("link worker did not stop in time")
)

// EventKind classifies a status event.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventDisconnected   EventKind = "disconnected"
	EventConnectFailed  EventKind = "connect_failed"
	EventReconnecting   EventKind = "reconnecting"
	EventPortDiscovered EventKind = "port_discovered"
)

// StatusEvent is delivered to observers on every transition.
type StatusEvent struct {
	Kind   EventKind
	State  models.LinkState
	Reason string
	Err    error
}

// LineHandler receives every complete, non-empty line read from the endpoint.
type LineHandler func(line string)

// Option customises a Manager.
type Option func(*Manager)

func WithPortFactory(f PortFactory) Option { return func(m *Manager) { m.factory = f } }
func WithEnumerator(e Enumerator) Option   { return func(m *Manager) { m.enumerate = e } }
func WithClock(c clockwork.Clock) Option   { return func(m *Manager) { m.clock = c } }
func WithLogger(l *logger.Logger) Option   { return func(m *Manager) { m.log = l } }

// Manager owns one endpoint. Poll and the worker started by Start are the only
// writers of the link state; everything else reads copies.
type Manager struct {
	cfg       config.SerialConfig
	mode      *serial.Mode
	factory   PortFactory
	enumerate Enumerator
	clock     clockwork.Clock
	log       *logger.Logger
	sink      LineHandler

	mu        sync.Mutex
	port      Port
	path      string
	state     models.LinkState
	observers []func(StatusEvent)

	pending string
	readBuf []byte

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager validates the serial settings and returns a disconnected manager.
func NewManager(cfg config.SerialConfig, sink LineHandler, opts ...Option) (*Manager, error) {
	mode, err := ModeFrom(cfg)
	if err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:       cfg,
		mode:      mode,
		factory:   OpenSerial,
		enumerate: ListSerial,
		clock:     clockwork.NewRealClock(),
		sink:      sink,
		readBuf:   make([]byte, 1024),
		state:     models.LinkState{Port: cfg.Port, Status: models.LinkDisconnected},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.sink == nil {
		m.sink = func(string) {}
	}
	return m, nil
}

// Subscribe registers fn for status events. fn runs on the worker goroutine and must not block.
func (m *Manager) Subscribe(fn func(StatusEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// State returns a copy of the link state.
func (m *Manager) State() models.LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether a port is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port != nil
}

func (m *Manager) emit(kind EventKind, reason string, err error) {
	m.mu.Lock()
	ev := StatusEvent{Kind: kind, State: m.state, Reason: reason, Err: err}
	observers := make([]func(StatusEvent), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}

func (m *Manager) setStatus(s models.LinkStatus) {
	m.mu.Lock()
	m.state.Status = s
	m.mu.Unlock()
}

// Connect resolves the endpoint (discovering it when configured as AUTO) and opens it.
func (m *Manager) Connect(ctx context.Context) error {
	m.setStatus(models.LinkConnecting)

	path, err := m.resolvePath(ctx)
	if err == nil {
		err = m.open(path)
	}
	if err != nil {
		m.mu.Lock()
		m.state.Status = models.LinkDisconnected
		if m.cfg.Port == config.AutoPort {
			// Rediscover next time; the device may have moved.
			m.path = ""
		}
		m.mu.Unlock()
		m.log.Warnw("link_connect_failed", "port", m.cfg.Port, "error", err)
		m.emit(EventConnectFailed, "open", err)
		return err
	}

	m.log.Infow("link_connected", "port", path, "baud", m.mode.BaudRate)
	m.emit(EventConnected, "open", nil)
	return nil
}

func (m *Manager) resolvePath(ctx context.Context) (string, error) {
	m.mu.Lock()
	known := m.path
	m.mu.Unlock()
	if known != "" {
		return known, nil
	}
	if m.cfg.Port != config.AutoPort && m.cfg.Port != "" {
		return m.cfg.Port, nil
	}

	candidates, err := m.enumerate()
	if err != nil {
		return "", err
	}
	prober := Prober{
		Factory:  m.factory,
		Mode:     m.mode,
		Clock:    m.clock,
		Attempts: m.cfg.ProbeAttempts,
		Delay:    m.cfg.ProbeDelay,
		Timeout:  m.cfg.ProbeTimeout,
	}
	path, err := prober.Discover(ctx, candidates)
	if err != nil {
		return "", fmt.Errorf("discover port among %d candidates: %w", len(candidates), err)
	}
	m.log.Infow("link_port_discovered", "port", path)
	m.mu.Lock()
	m.state.Port = path
	m.mu.Unlock()
	m.emit(EventPortDiscovered, path, nil)
	return path, nil
}

func (m *Manager) open(path string) error {
	port, err := m.factory(path, m.mode)
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(m.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	now := m.clock.Now()
	m.mu.Lock()
	m.port = port
	m.path = path
	m.pending = ""
	m.state.Port = path
	m.state.Status = models.LinkConnected
	m.state.ConsecutiveErrors = 0
	m.state.LastSuccessfulRead = now
	m.mu.Unlock()
	return nil
}

// closePort drops the current port. Safe to call when nothing is open.
func (m *Manager) closePort() {
	m.mu.Lock()
	port := m.port
	m.port = nil
	m.pending = ""
	m.state.Status = models.LinkDisconnected
	m.mu.Unlock()

	if port != nil {
		if err := port.Close(); err != nil {
			m.log.Warnw("link_close_failed", "error", err)
		}
	}
}

// Poll runs one iteration of the read loop: one bounded read, line dispatch, and
// the error/staleness policy that decides whether to reconnect. It reports whether
// the read returned data; the worker pauses for PollInterval otherwise.
func (m *Manager) Poll(ctx context.Context) bool {
	m.mu.Lock()
	port := m.port
	m.mu.Unlock()

	if port == nil {
		if m.stale() {
			m.maybeReconnect(ctx, "disconnected")
		}
		return false
	}

	n, err := port.Read(m.readBuf)
	if err != nil {
		m.mu.Lock()
		m.state.ConsecutiveErrors++
		count := m.state.ConsecutiveErrors
		m.mu.Unlock()

		logRead := m.log.Debugw
		if count == 1 || (m.cfg.MaxRetries > 0 && count%m.cfg.MaxRetries == 0) {
			logRead = m.log.Warnw
		}
		logRead("link_read_failed", "error", err, "consecutive_errors", count)
		if count >= m.cfg.MaxRetries {
			m.maybeReconnect(ctx, "max_retries")
		}
		return false
	}
	if n > 0 {
		m.dispatch(string(m.readBuf[:n]))
	}
	// Bytes without a complete line do not count as a successful read.
	if m.stale() {
		m.maybeReconnect(ctx, "read_timeout")
	}
	return n > 0
}

func (m *Manager) dispatch(chunk string) {
	m.mu.Lock()
	m.pending += chunk
	var lines []string
	for {
		line, rest, ok := popLine(m.pending)
		if !ok {
			break
		}
		m.pending = rest
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(m.pending) > maxLineBuffer {
		m.pending = ""
	}
	if len(lines) > 0 {
		m.state.ConsecutiveErrors = 0
		m.state.LastSuccessfulRead = m.clock.Now()
	}
	m.mu.Unlock()

	for _, line := range lines {
		m.sink(line)
	}
}

func (m *Manager) stale() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clock.Since(m.state.LastSuccessfulRead) > m.cfg.StaleTimeout
}

// maybeReconnect runs a reconnect unless one was attempted within the reconnect interval.
func (m *Manager) maybeReconnect(ctx context.Context, reason string) bool {
	now := m.clock.Now()
	m.mu.Lock()
	last := m.state.LastReconnectAttempt
	if !last.IsZero() && now.Sub(last) < m.cfg.ReconnectInterval {
		m.mu.Unlock()
		return false
	}
	m.state.LastReconnectAttempt = now
	m.state.Reconnects++
	m.mu.Unlock()

	m.log.Infow("link_reconnect", "reason", reason)
	m.emit(EventReconnecting, reason, nil)
	m.reconnect(ctx)
	return true
}

func (m *Manager) reconnect(ctx context.Context) {
	wasOpen := m.Connected()
	m.closePort()
	if wasOpen {
		m.emit(EventDisconnected, "reconnect", nil)
	}
	if !sleepWithContext(ctx, m.clock, m.cfg.ReconnectDelay) {
		return
	}
	if err := m.Connect(ctx); err != nil {
		m.log.Errorw("link_reconnect_failed", "error", err)
	}
}

// Write sends raw bytes to the open endpoint. The state lock is not held while
// the port writes.
func (m *Manager) Write(p []byte) error {
	m.mu.Lock()
	port, path := m.port, m.path
	m.mu.Unlock()
	if port == nil {
		return ErrNotConnected
	}
	if _, err := port.Write(p); err != nil {
		return fmt.Errorf("write to %s: %w", path, err)
	}
	return nil
}

// Start connects and launches the worker. A failed first connect is not fatal:
// the worker keeps retrying under the reconnect policy.
func (m *Manager) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	if err := m.Connect(ctx); err != nil {
		m.mu.Lock()
		m.state.LastReconnectAttempt = m.clock.Now()
		m.mu.Unlock()
	}
	go m.loop(ctx)
	return nil
}

func (m *Manager) loop(ctx context.Context) {
	defer close(m.done)
	defer m.closePort()

	for m.running.Load() {
		if ctx.Err() != nil {
			return
		}
		if m.Poll(ctx) {
			continue
		}
		if !sleepWithContext(ctx, m.clock, m.cfg.PollInterval) {
			return
		}
	}
}

// Stop clears the running flag and waits up to timeout for the worker to exit.
func (m *Manager) Stop(timeout time.Duration) error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	m.cancel()

	select {
	case <-m.done:
		m.emit(EventDisconnected, "stopped", nil)
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}
