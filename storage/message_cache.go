package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
)

// MessageCache stores the messages a session has seen, per tenant and per
// conversation, so the read path can serve bounded history without asking
// the protocol server. Keys:
//
//	chat:{location}:{chat_jid}                      -> ChatMeta (JSON)
//	msg:{location}:{chat_jid}:{unixnano:019d}:{id}  -> CachedMessage (JSON)
//	raw:{location}:{chat_jid}:{id}                  -> wire payload (proto)
//
// The 19-digit zero-padded timestamp makes lexicographic key order equal
// chronological order; the UUID disambiguates same-nanosecond arrivals.
type MessageCache struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageCache(db *badger.DB, log *slog.Logger) *MessageCache {
	return &MessageCache{db: db, log: log}
}

// ChatMeta identifies one cached conversation.
type ChatMeta struct {
	JID     string    `json:"jid"`
	Name    string    `json:"name"`
	IsGroup bool      `json:"is_group"`
	LastAt  time.Time `json:"last_at"`
}

// CachedMessage is one message as cached from the live stream or a history
// sync.
type CachedMessage struct {
	ID      uuid.UUID `json:"id"`
	ChatJID string    `json:"chat_jid"`
	From    string    `json:"from"`
	FromMe  bool      `json:"from_me"`
	Body    string    `json:"body"`
	At      time.Time `json:"at"`
}

func chatKey(location, chatJID string) []byte {
	return []byte(fmt.Sprintf("chat:%s:%s", location, chatJID))
}

func messageKey(location string, msg CachedMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%s:%019d:%s", location, msg.ChatJID, msg.At.UnixNano(), msg.ID))
}

func rawKey(location, chatJID string, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("raw:%s:%s:%s", location, chatJID, id))
}

// Store persists one message and refreshes its conversation's metadata in a
// single transaction.
func (c *MessageCache) Store(location string, meta ChatMeta, msg CachedMessage) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	meta.LastAt = msg.At

	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding cached message: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		// A message with no display name must not erase a name learned
		// earlier, for example from a history sync.
		if meta.Name == "" {
			if item, err := txn.Get(chatKey(location, meta.JID)); err == nil {
				_ = item.Value(func(value []byte) error {
					var existing ChatMeta
					if json.Unmarshal(value, &existing) == nil {
						meta.Name = existing.Name
					}
					return nil
				})
			}
		}
		metaBytes, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encoding chat meta: %w", err)
		}
		if err := txn.Set(messageKey(location, msg), msgBytes); err != nil {
			return err
		}
		return txn.Set(chatKey(location, meta.JID), metaBytes)
	})
}

// StoreRaw keeps the untouched wire payload alongside the normalized entry,
// for reprocessing and offline inspection.
func (c *MessageCache) StoreRaw(location, chatJID string, id uuid.UUID, payload proto.Message) error {
	bytes, err := proto.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding raw payload: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(rawKey(location, chatJID, id), bytes)
	})
}

// Chats lists the cached conversations of a tenant.
func (c *MessageCache) Chats(location string) ([]ChatMeta, error) {
	var chats []ChatMeta
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("chat:%s:", location))
		options := badger.DefaultIteratorOptions
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var meta ChatMeta
				if err := json.Unmarshal(value, &meta); err != nil {
					return err
				}
				chats = append(chats, meta)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing cached chats for %s: %w", location, err)
	}
	return chats, nil
}

// Messages returns at most limit most recent messages of one conversation,
// oldest first. Limit zero returns an empty, non-nil slice.
func (c *MessageCache) Messages(location, chatJID string, limit int) ([]CachedMessage, error) {
	messages := make([]CachedMessage, 0, limit)
	if limit <= 0 {
		return messages, nil
	}
	err := c.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:%s:", location, chatJID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the newest possible key, then walk backwards.
		seekKey := append([]byte{}, prefix...)
		seekKey = append(seekKey, []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var msg CachedMessage
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading cached messages for %s/%s: %w", location, chatJID, err)
	}

	// Reverse the newest-first scan so callers see chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
