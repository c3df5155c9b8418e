package runtime

import (
	"wa-gateway/domain"
	"wa-gateway/domain/event"
)

// Effect is a side effect requested by a lifecycle transition. Effects are
// executed by the orchestrator after the state change, in slice order, and
// never feed back into the transition itself.
type Effect int

const (
	// EffectClearMarker removes the initialization marker for the location.
	EffectClearMarker Effect = iota
	// EffectRegister publishes the connection as ready.
	EffectRegister
	// EffectRemove unregisters the connection, if it is still the current one.
	EffectRemove
	// EffectNotifyQR forwards the pairing challenge to the remote application.
	EffectNotifyQR
	// EffectNotifyLogin reports the authenticated identity to the remote
	// application.
	EffectNotifyLogin
)

// Transition folds one session event into the lifecycle state machine:
//
//	Absent -> Initializing -> Ready -> (Disconnected|Failed) -> Absent
//
// It is a pure function of (state, event) so every path is testable without
// an engine. The marker is always cleared before the connection registers,
// so a location never holds a marker and a ready connection at once.
func Transition(state domain.State, ev event.SessionEvent) (domain.State, []Effect) {
	switch ev.(type) {
	case event.PairingCode:
		if state == domain.StateInitializing {
			return state, []Effect{EffectNotifyQR}
		}
		return state, nil

	case event.Authenticated:
		// Session blob accepted; still waiting for the engine to finish
		// syncing before the session is usable.
		return state, nil

	case event.Ready:
		if state == domain.StateInitializing {
			return domain.StateReady, []Effect{EffectClearMarker, EffectRegister, EffectNotifyLogin}
		}
		// Reconnect of an already-ready session: refresh the registration.
		if state == domain.StateReady {
			return state, []Effect{EffectRegister}
		}
		return state, nil

	case event.AuthFailure:
		// Terminal for the attempt. No automatic retry: the caller re-triggers
		// via EnsureConnected or the read path does through recovery.
		return domain.StateFailed, []Effect{EffectClearMarker, EffectRemove}

	case event.Disconnected:
		if state == domain.StateReady {
			return domain.StateAbsent, []Effect{EffectRemove}
		}
		// Dropped before ever reaching ready.
		return domain.StateFailed, []Effect{EffectClearMarker, EffectRemove}

	case event.MessageReceived:
		return state, nil
	}
	return state, nil
}

// terminal reports whether the state ends the session's event loop.
func terminal(state domain.State) bool {
	return state == domain.StateAbsent || state == domain.StateFailed
}
