package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SessionState tracks where the supervisor landed for the current invocation.
type SessionState string

const (
	// StateNoRecord: nothing persisted for this project; a spawn is required.
	StateNoRecord SessionState = "no_record"

	// StateRecordedUnverified: a record exists but the URL has not been
	// probed yet this invocation. Never returned to callers; it is the
	// intermediate state that decides between reuse and respawn.
	StateRecordedUnverified SessionState = "recorded_unverified"

	// StateConnectedManaged: connected to a process this tool spawned and
	// supervises. Respawn on failure is allowed from here on the next
	// invocation.
	StateConnectedManaged SessionState = "connected_managed"

	// StateConnectedExternal: caller supplied --url. No process ownership,
	// no state writes, no restart ever.
	StateConnectedExternal SessionState = "connected_external"

	// StateDead: spawn was attempted and failed within the startup budget.
	StateDead SessionState = "dead"
)

// ProcessRecord is the persisted view of a managed flutter run process.
// It is a cache, not a source of truth: every field must be re-verified
// against a live probe before being trusted. Unknown JSON fields are
// ignored on read so older binaries can read newer records.
type ProcessRecord struct {
	ProjectHash string    `json:"projectHash"`
	ServiceURL  string    `json:"serviceUrl,omitempty"`
	PID         int       `json:"pid,omitempty"`
	AppID       string    `json:"appId,omitempty"`
	LogPath     string    `json:"logPath,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Isolate is one Dart execution unit inside the target VM. HasFlutterExtensions
// is derived by probing registered service extensions, not part of the raw
// isolate listing.
type Isolate struct {
	ID                   string
	Name                 string
	HasFlutterExtensions bool
}

// Notification is a server-initiated JSON-RPC message (no id).
type Notification struct {
	Method string
	Params json.RawMessage
}

// Conn is a live VM service connection. It is owned by exactly one
// invocation and dies with it.
type Conn interface {
	// Call issues a JSON-RPC request and blocks until the matching response
	// arrives, ctx expires, or the connection closes. Concurrent calls are
	// supported; responses are routed by id, never by arrival order.
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)

	// Notifications returns the stream of server-initiated events. The
	// channel closes when the connection does.
	Notifications() <-chan Notification

	// Ping reports whether the peer still answers a getVersion round-trip.
	Ping(ctx context.Context) bool

	Close() error
}

// Session is the result of a successful EnsureConnection.
type Session struct {
	Conn   Conn
	State  SessionState
	Record *ProcessRecord
}

// Managed reports whether this session owns a supervised process.
func (s *Session) Managed() bool {
	return s != nil && s.State == StateConnectedManaged
}

// StateStore persists one ProcessRecord per project hash across invocations.
// It is injected into the supervisor so a locking strategy can be added
// behind this seam without touching the state machine.
type StateStore interface {
	// Load returns nil, nil for a missing or unreadable record.
	Load(projectHash string) (*ProcessRecord, error)
	Save(record *ProcessRecord) error
	Clear(projectHash string) error
}

var (
	ErrConnectFailed      = errors.New("vm service unreachable")
	ErrProtocolMismatch   = errors.New("vm service rejected websocket handshake")
	ErrConnectionClosed   = errors.New("vm service connection closed")
	ErrNoIsolateFound     = errors.New("no isolate with ext.flutter extensions found")
	ErrProcessStartFailed = errors.New("flutter run failed to start")
	ErrStateCorrupt       = errors.New("state record unreadable")
	ErrNotManaged         = errors.New("no managed flutter run process")
)
