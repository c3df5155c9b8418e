package waengine

import (
	"context"

	"wa-gateway/domain"
	"wa-gateway/storage"
)

// chatHandle reads one conversation out of the tenant's cache. Implements
// contract.ChatHandle.
type chatHandle struct {
	cache    *storage.MessageCache
	location string
	meta     storage.ChatMeta
}

// Name prefers the learned display name and falls back to the bare
// conversation identifier when none was ever seen.
func (h *chatHandle) Name() string {
	if h.meta.Name != "" {
		return h.meta.Name
	}
	return domain.CanonicalIdentifier(h.meta.JID)
}

func (h *chatHandle) IsGroup() bool { return h.meta.IsGroup }

func (h *chatHandle) Messages(ctx context.Context, limit int) ([]domain.Message, error) {
	cached, err := h.cache.Messages(h.location, h.meta.JID, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.Message, 0, len(cached))
	for _, msg := range cached {
		messages = append(messages, domain.Message{
			From:   msg.From,
			FromMe: msg.FromMe,
			Body:   msg.Body,
		})
	}
	return messages, nil
}
