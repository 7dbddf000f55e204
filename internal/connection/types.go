package connection

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no heartbeat)")
	ErrConnClosed      = errors.New("connection closed by peer")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAlreadyStarted  = errors.New("already started")
)

// State is the connection manager state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
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

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// Conn is an open duplex text channel.
type Conn interface {
	// Send writes one text message. Safe for concurrent use.
	Send(data []byte) error

	// Messages returns a channel of inbound messages.
	Messages() <-chan TimestampedMessage

	// Errors receives at most one terminal transport error.
	Errors() <-chan error

	// Close releases the connection.
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// Hooks receive connection events. All hooks run on the manager's event goroutine
// and must not block for long. Nil hooks are skipped.
type Hooks struct {
	OnOpen    func()                   // Once per successful open
	OnMessage func(TimestampedMessage) // Every inbound message while open
	OnError   func(error)              // Failed dial or transport error
	OnClose   func()                   // Open connection lost (not called on shutdown)
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL including session query parameters
	Header           http.Header   // Extra handshake headers (Origin, User-Agent)
	HandshakeTimeout time.Duration // Dial handshake limit
	PingInterval     time.Duration // Interval between heartbeat pings
	PingTimeout      time.Duration // Max time without any inbound traffic before the connection is stale
	WriteTimeout     time.Duration // Write deadline for sends
	HeartbeatText    string        // Optional text frame sent on every ping tick (engine.io "2")
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     25 * time.Second,
		PingTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL               string        // Gateway URL passed to the dialer
	ReconnectBaseWait time.Duration // First backoff delay
	ReconnectMaxWait  time.Duration // Backoff cap
	EventBufferSize   int           // Control channel buffer
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  32 * time.Second,
		EventBufferSize:   1024,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State    State
	Attempts int64 // Dials started
	Opens    int64 // Dials that reached Open
	Failures int64 // Failed dials plus lost connections
}
