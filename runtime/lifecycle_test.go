package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wa-gateway/domain"
	"wa-gateway/domain/event"
)

func TestTransition_Pairing_Keeps_Initializing(t *testing.T) {
	state, effects := Transition(domain.StateInitializing, event.PairingCode{Location: "loc-1", Code: "2@abc"})

	assert.Equal(t, domain.StateInitializing, state)
	assert.Equal(t, []Effect{EffectNotifyQR}, effects)
}

func TestTransition_Ready_Registers_After_Clearing_Marker(t *testing.T) {
	state, effects := Transition(domain.StateInitializing, event.Ready{Location: "loc-1"})

	assert.Equal(t, domain.StateReady, state)
	// Marker clearing precedes registration so a location never holds both.
	assert.Equal(t, []Effect{EffectClearMarker, EffectRegister, EffectNotifyLogin}, effects)
}

func TestTransition_Ready_While_Ready_Refreshes_Registration(t *testing.T) {
	state, effects := Transition(domain.StateReady, event.Ready{Location: "loc-1"})

	assert.Equal(t, domain.StateReady, state)
	assert.Equal(t, []Effect{EffectRegister}, effects)
}

func TestTransition_AuthFailure_Is_Terminal(t *testing.T) {
	state, effects := Transition(domain.StateInitializing, event.AuthFailure{Location: "loc-1", Reason: "401"})

	assert.Equal(t, domain.StateFailed, state)
	assert.Equal(t, []Effect{EffectClearMarker, EffectRemove}, effects)
	assert.True(t, terminal(state))
}

func TestTransition_Disconnect_Of_Ready_Session(t *testing.T) {
	state, effects := Transition(domain.StateReady, event.Disconnected{Location: "loc-1", Reason: "logout"})

	assert.Equal(t, domain.StateAbsent, state)
	assert.Equal(t, []Effect{EffectRemove}, effects)
	assert.True(t, terminal(state))
}

func TestTransition_Disconnect_Before_Ready_Clears_Marker(t *testing.T) {
	state, effects := Transition(domain.StateInitializing, event.Disconnected{Location: "loc-1", Reason: "stream error"})

	assert.Equal(t, domain.StateFailed, state)
	assert.Equal(t, []Effect{EffectClearMarker, EffectRemove}, effects)
}

func TestTransition_Informational_Events_Have_No_Effects(t *testing.T) {
	for _, ev := range []event.SessionEvent{
		event.Authenticated{Location: "loc-1"},
		event.MessageReceived{Location: "loc-1", ChatName: "Front desk"},
	} {
		state, effects := Transition(domain.StateInitializing, ev)
		assert.Equal(t, domain.StateInitializing, state)
		assert.Empty(t, effects)
	}
}

func TestTransition_Pairing_After_Ready_Is_Ignored(t *testing.T) {
	state, effects := Transition(domain.StateReady, event.PairingCode{Location: "loc-1", Code: "2@abc"})

	assert.Equal(t, domain.StateReady, state)
	assert.Empty(t, effects)
}
