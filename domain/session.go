// Package domain contains the core concepts of the gateway: tenants
// (location identifiers), session lifecycle states and the normalized
// chat shapes returned to callers.
package domain

// Status is the outcome of an EnsureConnected call.
type Status string

const (
	// StatusConnecting means a new initialization was started; readiness
	// arrives later through the session event stream.
	StatusConnecting Status = "connecting"
	// StatusAlreadyConnecting means another initialization for the same
	// location is in flight and this call was suppressed.
	StatusAlreadyConnecting Status = "already-connecting"
	// StatusReady means a live session already exists for the location.
	StatusReady Status = "ready"
	// StatusFailed means the initialization could not be started.
	StatusFailed Status = "failed"
)

// ClientInfo is the identity a session exposes once authenticated.
type ClientInfo struct {
	UserID   string // phone number part of the JID
	Platform string
	PushName string
}

// State is the lifecycle position of one location's session.
// Initializing is reachable only from Absent; the initialization tracker
// enforces that structurally.
type State int

const (
	StateAbsent State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
