// Package event defines the session lifecycle events emitted by a protocol
// engine. Each engine instance owns one event stream; the orchestrator folds
// the stream through a pure transition function.
package event

import "wa-gateway/domain"

// SessionEvent is anything a protocol engine can report about one session.
type SessionEvent interface {
	LocationID() string
}

// PairingCode carries a QR pairing challenge that must be presented to the
// end user. The payload is opaque to the gateway.
type PairingCode struct {
	Location string
	Code     string
}

func (e PairingCode) LocationID() string { return e.Location }

// Authenticated fires when the session blob was accepted. The session is not
// usable yet; Ready follows once the engine finished syncing.
type Authenticated struct {
	Location string
}

func (e Authenticated) LocationID() string { return e.Location }

// Ready fires when the session is fully usable.
type Ready struct {
	Location string
	Info     domain.ClientInfo
}

func (e Ready) LocationID() string { return e.Location }

// AuthFailure is terminal for the initialization attempt.
type AuthFailure struct {
	Location string
	Reason   string
}

func (e AuthFailure) LocationID() string { return e.Location }

// Disconnected fires when a ready session drops. The gateway does not
// restart it on its own; re-initiation is explicit.
type Disconnected struct {
	Location string
	Reason   string
}

func (e Disconnected) LocationID() string { return e.Location }

// MessageReceived is informational; the engine caches the message itself.
type MessageReceived struct {
	Location string
	ChatName string
	From     string
}

func (e MessageReceived) LocationID() string { return e.Location }
