package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/errors"
)

// ChatReader is the read path: it resolves the connection for a location,
// fetches its chats and normalizes them into the caller-facing shape.
// It never retries; on a fetch failure it hands the location back to the
// orchestrator for recovery and reports the read as retryable.
type ChatReader struct {
	log          *slog.Logger
	registry     contract.IRegistry
	tracker      contract.ITracker
	orchestrator contract.IOrchestrator
}

func NewChatReader(log *slog.Logger, registry contract.IRegistry, tracker contract.ITracker, orchestrator contract.IOrchestrator) *ChatReader {
	return &ChatReader{
		log:          log,
		registry:     registry,
		tracker:      tracker,
		orchestrator: orchestrator,
	}
}

// RawChats returns the engine's chat handles unprocessed, for internal reuse.
// Same resolution and failure rules as ListChats.
func (r *ChatReader) RawChats(ctx context.Context, location string) ([]contract.ChatHandle, error) {
	return r.fetch(ctx, location)
}

// ListChats fetches the location's chats with at most limit messages each
// and assembles them into a ChatCollection keyed by chat display name.
//
// Distinct condition codes, all in the errors package: ErrNotConnected when
// nothing is registered and nothing is initializing, ErrAlreadyInitializing
// while pairing is underway, ErrReadFailure after a fetch error (recovery
// has been triggered, retry after a delay), ErrTemporarilyUnavailable when
// the engine returned no usable list.
//
// Message order within a chat is whatever the engine returned; it is
// preserved, not re-sorted.
func (r *ChatReader) ListChats(ctx context.Context, location string, limit int) (domain.ChatCollection, error) {
	chats, err := r.fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if limit < 0 {
		limit = 0
	}

	r.log.Debug("assembling chat collection", "location", location, "chats", len(chats), "limit", limit)

	collection := make(domain.ChatCollection, len(chats))
	for _, chat := range chats {
		messages, err := chat.Messages(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("fetching messages for chat %q: %w", chat.Name(), err)
		}
		if len(messages) > limit {
			messages = messages[:limit]
		}
		for i := range messages {
			messages[i].From = domain.CanonicalIdentifier(messages[i].From)
		}
		// Chats sharing a display name collapse into one entry, last write
		// wins. See domain.ChatCollection.
		collection[chat.Name()] = domain.Chat{
			Name:     chat.Name(),
			IsGroup:  chat.IsGroup(),
			Messages: messages,
		}
	}
	return collection, nil
}

// fetch resolves the connection and lists its chats, mapping every failure
// mode to its condition code. Registry and tracker are left untouched unless
// a fetch error forces recovery.
func (r *ChatReader) fetch(ctx context.Context, location string) ([]contract.ChatHandle, error) {
	if location == "" {
		return nil, errors.ErrLocationRequired
	}

	conn, ok := r.registry.Get(location)
	if !ok {
		if r.tracker.Active(location) {
			return nil, errors.ErrAlreadyInitializing
		}
		return nil, errors.ErrNotConnected
	}

	chats, err := conn.Engine.Chats(ctx)
	if err != nil {
		r.log.Error("chat fetch failed, starting recovery", "location", location, "error", err)
		r.orchestrator.RecoverFromReadFailure(ctx, location, "")
		return nil, fmt.Errorf("%w: %v", errors.ErrReadFailure, err)
	}
	if chats == nil {
		return nil, errors.ErrTemporarilyUnavailable
	}
	return chats, nil
}
