package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/rickgao/collection-replay/internal/clock"
	"github.com/rickgao/collection-replay/internal/metrics"
)

type eventKind int

const (
	evMessage eventKind = iota
	evConnError
)

// event is a transport notification on the manager's control channel.
// gen identifies the connection that produced it; events from older connections are dropped.
type event struct {
	kind eventKind
	gen  uint64
	msg  TimestampedMessage
	err  error
}

// Manager owns the gateway connection and its reconnect loop.
type Manager struct {
	cfg    ManagerConfig
	dialer Dialer
	clock  clock.Clock
	logger *slog.Logger

	events chan event

	started atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Connection handle, guarded for Send
	mu    sync.RWMutex
	state State
	conn  Conn
	gen   uint64

	sendMu sync.Mutex

	attempts atomic.Int64
	opens    atomic.Int64
	failures atomic.Int64
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, dialer Dialer, clk clock.Clock, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	def := DefaultManagerConfig()
	if cfg.ReconnectBaseWait <= 0 {
		cfg.ReconnectBaseWait = def.ReconnectBaseWait
	}
	if cfg.ReconnectMaxWait < cfg.ReconnectBaseWait {
		cfg.ReconnectMaxWait = cfg.ReconnectBaseWait
	}
	if cfg.EventBufferSize < 1 {
		cfg.EventBufferSize = def.EventBufferSize
	}

	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		clock:  clk,
		logger: logger,
		events: make(chan event, cfg.EventBufferSize),
		done:   make(chan struct{}),
		state:  StateDisconnected,
	}
}

// Connect starts the event goroutine, which dials immediately and keeps the
// connection open until Close is called or ctx ends.
func (m *Manager) Connect(ctx context.Context, hooks Hooks) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, m.cancel = context.WithCancel(ctx)
	go m.run(ctx, hooks)

	return nil
}

// Send writes text to the open connection. Concurrent calls never interleave.
func (m *Manager) Send(text string) error {
	m.mu.RLock()
	conn, state := m.conn, m.state
	m.mu.RUnlock()

	if state != StateOpen || conn == nil {
		return ErrNotConnected
	}

	m.sendMu.Lock()
	defer m.sendMu.Unlock()

	if err := conn.Send([]byte(text)); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Close requests shutdown and waits for the event goroutine to exit.
// It must not be called from a hook.
func (m *Manager) Close() error {
	if !m.started.Load() {
		return nil
	}
	m.cancel()
	<-m.done
	return nil
}

// Done is closed once the manager has shut down.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	return ManagerStats{
		State:    m.State(),
		Attempts: m.attempts.Load(),
		Opens:    m.opens.Load(),
		Failures: m.failures.Load(),
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	metrics.ConnectionState.Set(float64(s))
}

// run is the event goroutine. It owns every state transition.
func (m *Manager) run(ctx context.Context, hooks Hooks) {
	defer close(m.done)
	defer m.setState(StateDisconnected)

	wait := m.cfg.ReconnectBaseWait
	first := true

	for {
		if !first {
			m.setState(StateReconnecting)
			metrics.Reconnects.Inc()
			m.logger.Info("reconnecting", "wait", wait)

			if err := m.clock.Sleep(ctx, wait); err != nil {
				m.setState(StateClosing)
				return
			}
			wait = min(wait*2, m.cfg.ReconnectMaxWait)
		}
		first = false

		m.setState(StateConnecting)
		conn, logger, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				m.setState(StateClosing)
				return
			}
			m.failures.Add(1)
			logger.Warn("connect failed", "error", err)
			if hooks.OnError != nil {
				hooks.OnError(err)
			}
			continue
		}

		wait = m.cfg.ReconnectBaseWait
		gen := m.open(conn)
		m.opens.Add(1)
		logger.Info("connection open")
		if hooks.OnOpen != nil {
			hooks.OnOpen()
		}

		err = m.serve(ctx, gen, conn, hooks)

		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()

		if err == nil {
			m.setState(StateClosing)
			m.sendMu.Lock()
			conn.Close()
			m.sendMu.Unlock()
			logger.Info("connection closed")
			return
		}

		conn.Close()
		m.failures.Add(1)
		logger.Warn("connection lost", "error", err)
		if hooks.OnError != nil {
			hooks.OnError(err)
		}
		if hooks.OnClose != nil {
			hooks.OnClose()
		}
	}
}

// dial makes one connection attempt.
func (m *Manager) dial(ctx context.Context) (Conn, *slog.Logger, error) {
	attempt := m.attempts.Add(1)
	logger := m.logger.With("conn_id", uuid.NewString())
	logger.Debug("dialing", "attempt", attempt)

	conn, err := m.dialer.Dial(ctx, m.cfg.URL)
	if err != nil {
		return nil, logger, err
	}
	return conn, logger, nil
}

// open installs conn as the current connection.
func (m *Manager) open(conn Conn) uint64 {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.conn = conn
	m.state = StateOpen
	m.mu.Unlock()
	metrics.ConnectionState.Set(float64(StateOpen))

	return gen
}

// serve dispatches events for one open connection.
// Returns nil on shutdown and the transport error when the connection is lost.
func (m *Manager) serve(ctx context.Context, gen uint64, conn Conn, hooks Hooks) error {
	stop := make(chan struct{})
	defer close(stop)
	go m.pump(ctx, stop, gen, conn)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-m.events:
			if ev.gen != gen {
				continue
			}
			switch ev.kind {
			case evMessage:
				if hooks.OnMessage != nil {
					hooks.OnMessage(ev.msg)
				}
			case evConnError:
				return ev.err
			}
		}
	}
}

// pump forwards one connection's transport channels onto the control channel.
func (m *Manager) pump(ctx context.Context, stop <-chan struct{}, gen uint64, conn Conn) {
	post := func(ev event) bool {
		select {
		case m.events <- ev:
			return true
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-conn.Messages():
			if !ok {
				post(event{kind: evConnError, gen: gen, err: ErrConnClosed})
				return
			}
			if !post(event{kind: evMessage, gen: gen, msg: msg}) {
				return
			}
		case err := <-conn.Errors():
			// Deliver anything read before the failure.
		drain:
			for {
				select {
				case msg, ok := <-conn.Messages():
					if !ok {
						break drain
					}
					if !post(event{kind: evMessage, gen: gen, msg: msg}) {
						return
					}
				default:
					break drain
				}
			}
			if err == nil {
				err = ErrConnClosed
			}
			post(event{kind: evConnError, gen: gen, err: err})
			return
		}
	}
}
