package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/domain/event"
	"wa-gateway/errors"
)

// Orchestrator drives the lifecycle of every location's session: it starts
// deduplicated initializations, folds engine events through the lifecycle
// state machine and keeps the registry and tracker consistent on every exit
// path. All state lives in the registry and the tracker; the orchestrator
// itself holds no per-location mutable state.
type Orchestrator struct {
	log      *slog.Logger
	registry contract.IRegistry
	tracker  contract.ITracker
	engines  contract.EngineFactory
	stores   contract.StoreProvider
	notifier contract.Notifier
}

func NewOrchestrator(
	log *slog.Logger,
	registry contract.IRegistry,
	tracker contract.ITracker,
	engines contract.EngineFactory,
	stores contract.StoreProvider,
	notifier contract.Notifier,
) *Orchestrator {
	return &Orchestrator{
		log:      log,
		registry: registry,
		tracker:  tracker,
		engines:  engines,
		stores:   stores,
		notifier: notifier,
	}
}

// EnsureConnected makes sure the location has a live session or an
// initialization underway.
//
// Fast path: a registered connection exists, nothing to do. Otherwise the
// tracker's atomic check-and-insert decides a single winner among concurrent
// callers; losers get StatusAlreadyConnecting, which is flow control, not a
// failure. The winner acquires the tenant store, builds an engine and starts
// it asynchronously: readiness arrives later on the event stream. The marker
// is released on every failure path of this method; on success it is released
// by the event loop when the session becomes ready or fails.
func (o *Orchestrator) EnsureConnected(ctx context.Context, location, userID string) (domain.Status, error) {
	if location == "" {
		return domain.StatusFailed, errors.ErrLocationRequired
	}

	if _, ok := o.registry.Get(location); ok {
		return domain.StatusReady, nil
	}

	if !o.tracker.TryBegin(location) {
		o.log.Info("initialization already in progress", "location", location)
		return domain.StatusAlreadyConnecting, nil
	}

	o.log.Info("initializing session", "location", location, "user_id", userID)
	if err := o.initialize(ctx, location, userID); err != nil {
		o.tracker.End(location)
		o.log.Error("session initialization failed to start", "location", location, "error", err)
		return domain.StatusFailed, fmt.Errorf("%w: %v", errors.ErrInitializationFailure, err)
	}
	return domain.StatusConnecting, nil
}

// initialize acquires the tenant store, builds the engine and triggers its
// asynchronous start. The store must be released on any failure after
// acquisition; once the engine is started, the event loop owns both.
func (o *Orchestrator) initialize(ctx context.Context, location, userID string) error {
	store, err := o.stores.Acquire(ctx, location)
	if err != nil {
		return fmt.Errorf("acquiring tenant store: %w", err)
	}

	if err := store.InitializeDatabase(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("initializing tenant store: %w", err)
	}

	engine, events, err := o.engines.New(ctx, location, store)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("building engine: %w", err)
	}

	if err := engine.Initialize(ctx); err != nil {
		engine.Close()
		_ = store.Close()
		return fmt.Errorf("starting engine: %w", err)
	}

	go o.watch(location, userID, engine, events, store)
	return nil
}

// RecoverFromReadFailure is the self-healing path exercised by the read
// side: it tears down the stale connection and re-enters EnsureConnected.
// TryBegin makes the recovery idempotent: concurrent failing reads produce
// exactly one new initialization.
func (o *Orchestrator) RecoverFromReadFailure(ctx context.Context, location, userID string) {
	if conn, ok := o.registry.Remove(location); ok {
		o.log.Warn("tearing down stale session after read failure", "location", location)
		conn.Engine.Close()
	}
	status, err := o.EnsureConnected(ctx, location, userID)
	if err != nil {
		o.log.Error("recovery initialization failed", "location", location, "error", err)
		return
	}
	o.log.Info("recovery initialization started", "location", location, "status", string(status))
}

// watch is the per-session event loop. It folds every engine event through
// Transition and applies the requested effects. The loop ends on a terminal
// state or when the engine closes its stream; either way the marker is
// cleared if the session never became ready, the connection is dropped if it
// did, and the tenant store is released.
func (o *Orchestrator) watch(location, userID string, engine contract.Engine, events <-chan event.SessionEvent, store contract.TenantStore) {
	state := domain.StateInitializing
	var conn *contract.Connection

	defer func() {
		if state == domain.StateInitializing {
			// Stream closed without a terminal event: the attempt is dead,
			// future initializations must not be blocked by a stale marker.
			o.tracker.End(location)
		}
		if conn != nil {
			o.registry.Drop(conn)
		}
		engine.Close()
		_ = store.Close()
		o.log.Info("session event loop finished", "location", location, "state", state.String())
	}()

	for ev := range events {
		var effects []Effect
		state, effects = Transition(state, ev)
		conn = o.apply(location, userID, engine, conn, ev, effects)
		if terminal(state) {
			if state == domain.StateFailed {
				o.log.Error("session failed", "location", location)
			}
			return
		}
	}
}

// apply executes transition effects in order. Notifications are handed to
// the notifier, which is fire-and-forget; their outcome never changes
// session state.
func (o *Orchestrator) apply(location, userID string, engine contract.Engine, conn *contract.Connection, ev event.SessionEvent, effects []Effect) *contract.Connection {
	for _, effect := range effects {
		switch effect {
		case EffectClearMarker:
			o.tracker.End(location)

		case EffectRegister:
			info := engine.Info()
			if ready, ok := ev.(event.Ready); ok {
				info = ready.Info
			}
			conn = &contract.Connection{
				Location: location,
				Engine:   engine,
				Info:     info,
				ReadyAt:  time.Now(),
			}
			o.registry.Put(conn)
			o.log.Info("session ready",
				"location", location,
				"phone", conn.Info.UserID,
				"platform", conn.Info.Platform,
			)

		case EffectRemove:
			if conn != nil && o.registry.Drop(conn) {
				o.log.Info("session unregistered", "location", location)
			}
			conn = nil

		case EffectNotifyQR:
			if qr, ok := ev.(event.PairingCode); ok {
				o.log.Info("pairing challenge received", "location", location)
				o.notifier.PairingCode(location, userID, qr.Code)
			}

		case EffectNotifyLogin:
			if conn != nil {
				o.notifier.LoggedIn(location, userID, conn.Info)
			}
		}
	}

	switch e := ev.(type) {
	case event.Authenticated:
		o.log.Info("session authenticated, persisting may take a while", "location", location)
	case event.AuthFailure:
		o.log.Error("authentication failure", "location", location, "reason", e.Reason)
	case event.Disconnected:
		o.log.Warn("session disconnected", "location", location, "reason", e.Reason)
	case event.MessageReceived:
		o.log.Debug("message received", "location", location, "chat", e.ChatName, "from", e.From)
	}
	return conn
}
