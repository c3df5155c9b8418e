// Package runtime holds the connection registry, the initialization tracker,
// the session orchestrator and the chat read path. It orchestrates sessions
// without containing any protocol logic.
package runtime

import (
	"sync"

	"github.com/samber/lo"

	"wa-gateway/contract"
)

// Registry maps location identifiers to their ready connection.
// A location has at most one connection; operations on different locations
// proceed independently.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*contract.Connection
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*contract.Connection)}
}

func (r *Registry) Get(location string) (*contract.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[location]
	return conn, ok
}

func (r *Registry) Put(conn *contract.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[conn.Location] = conn
}

// Remove unregisters whatever connection the location currently has and
// returns it so the caller can tear it down.
func (r *Registry) Remove(location string) (*contract.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.sessions[location]
	if ok {
		delete(r.sessions, location)
	}
	return conn, ok
}

// Drop unregisters conn only if it is still the current connection for its
// location. A disconnect event from a session that was already replaced
// must not evict the replacement.
func (r *Registry) Drop(conn *contract.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[conn.Location]
	if !ok || current != conn {
		return false
	}
	delete(r.sessions, conn.Location)
	return true
}

func (r *Registry) Locations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.sessions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
