//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"wa-gateway/domain"
	"wa-gateway/domain/event"
)

// Engine is a live protocol session bound to one location. Implementations
// wrap the actual WhatsApp client; the gateway core never touches the wire
// protocol directly.
type Engine interface {
	// Initialize starts the connection asynchronously. It returns once the
	// connect attempt is underway; readiness arrives later on the event
	// stream, after pairing if the location was never paired before.
	Initialize(ctx context.Context) error
	// Chats lists the conversations visible to the session.
	Chats(ctx context.Context) ([]ChatHandle, error)
	// Info is only meaningful once the session reported Ready.
	Info() domain.ClientInfo
	// Close tears the session down and closes its event stream.
	Close()
}

// ChatHandle is one conversation as seen by the engine, before normalization.
type ChatHandle interface {
	Name() string
	IsGroup() bool
	// Messages returns at most limit messages in the engine's own order.
	Messages(ctx context.Context, limit int) ([]domain.Message, error)
}

// EngineFactory builds an engine and its event stream for one location.
// The stream is closed when the engine is closed.
type EngineFactory interface {
	New(ctx context.Context, location string, store TenantStore) (Engine, <-chan event.SessionEvent, error)
}

// TenantStore is the auth-session store scoped to one location: it remembers
// which paired device the location owns and receives the engine's cached
// state. Acquired per initialization attempt and closed when the session ends.
type TenantStore interface {
	InitializeDatabase(ctx context.Context) error
	// BoundDevice returns the paired device JID, or "" if never paired.
	BoundDevice() (string, error)
	BindDevice(jid string) error
	Close() error
}

// StoreProvider hands out tenant stores.
type StoreProvider interface {
	Acquire(ctx context.Context, location string) (TenantStore, error)
}

// Notifier pushes session events to the remote application. Both calls are
// fire-and-forget: failures are logged by the implementation and never reach
// the caller.
type Notifier interface {
	PairingCode(location, userID, code string)
	LoggedIn(location, userID string, info domain.ClientInfo)
}

// Connection binds a ready engine to the location that owns it.
type Connection struct {
	Location string
	Engine   Engine
	Info     domain.ClientInfo
	ReadyAt  time.Time
}

// IRegistry holds the ready connections, one per location at most.
type IRegistry interface {
	Get(location string) (*Connection, bool)
	Put(conn *Connection)
	// Remove unregisters whatever connection the location currently has.
	Remove(location string) (*Connection, bool)
	// Drop unregisters conn only if it is still the registered connection
	// for its location. A late disconnect of a replaced session must not
	// evict its successor.
	Drop(conn *Connection) bool
	Locations() []string
	Len() int
}

// ITracker enforces at most one initialization per location. TryBegin is an
// atomic check-and-insert: it returns false when a marker already exists,
// and the caller must not start a duplicate initialization.
type ITracker interface {
	TryBegin(location string) bool
	// End removes the marker unconditionally. Idempotent.
	End(location string)
	Active(location string) bool
	Count() int
}

// IOrchestrator drives one location's session lifecycle end to end.
type IOrchestrator interface {
	EnsureConnected(ctx context.Context, location, userID string) (domain.Status, error)
	// RecoverFromReadFailure tears down a stale connection and re-enters
	// EnsureConnected. Called by the read path, never retried internally.
	RecoverFromReadFailure(ctx context.Context, location, userID string)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself; the supervisor restarts it after a panic.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// used for logging and supervision without forcing a Name method on Worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
