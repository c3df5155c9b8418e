package errors

import "fmt"

var (
	// ErrLocationRequired is returned when a caller omits the location identifier.
	ErrLocationRequired = fmt.Errorf("location identifier is required")

	// ErrNotConnected means no session exists and none is being initialized.
	// The caller should trigger EnsureConnected.
	ErrNotConnected = fmt.Errorf("no session for this location")

	// ErrAlreadyInitializing is a flow-control signal, not a failure:
	// a session is being initialized, the caller should retry in a few seconds.
	ErrAlreadyInitializing = fmt.Errorf("session is initializing, retry later")

	// ErrReadFailure means a chat fetch against a live session failed.
	// The stale session has been torn down and a new initialization started;
	// the read itself is not retried.
	ErrReadFailure = fmt.Errorf("chat read failed, session is reinitializing")

	// ErrTemporarilyUnavailable means the engine returned no usable chat list
	// without an explicit failure. Retryable, no recovery action taken.
	ErrTemporarilyUnavailable = fmt.Errorf("chats temporarily unavailable, retry later")

	// ErrInitializationFailure is terminal for one initialization attempt.
	ErrInitializationFailure = fmt.Errorf("session initialization failed")

	ErrInvalidToken = fmt.Errorf("invalid or expired token")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
)
