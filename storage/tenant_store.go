// Package storage is the Badger-backed persistence layer: per-tenant device
// bindings and the message cache that serves the chat read path.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"wa-gateway/contract"
)

// Stores hands out tenant-scoped views of the shared Badger database.
// One TenantStore is acquired per initialization attempt and released when
// the session ends.
type Stores struct {
	db  *badger.DB
	log *slog.Logger
}

func NewStores(db *badger.DB, log *slog.Logger) *Stores {
	return &Stores{db: db, log: log}
}

// Acquire opens the tenant's view. Cheap: the database is shared, the view
// only carries the key namespace.
func (s *Stores) Acquire(ctx context.Context, location string) (contract.TenantStore, error) {
	if location == "" {
		return nil, fmt.Errorf("acquire: empty location")
	}
	return &TenantStore{db: s.db, log: s.log, location: location}, nil
}

// TenantStore is the auth-session store for one location. It remembers the
// paired device JID so a returning tenant reconnects to its existing session
// instead of pairing again.
type TenantStore struct {
	db       *badger.DB
	log      *slog.Logger
	location string
}

func tenantKey(location string) []byte { return []byte("tenant:" + location) }
func deviceKey(location string) []byte { return []byte("device:" + location) }

// InitializeDatabase records the tenant namespace on first use.
func (t *TenantStore) InitializeDatabase(ctx context.Context) error {
	return t.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(tenantKey(t.location))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		t.log.Debug("registering tenant namespace", "location", t.location)
		return txn.Set(tenantKey(t.location), []byte(time.Now().UTC().Format(time.RFC3339)))
	})
}

// BoundDevice returns the paired device JID, or "" if the location was
// never paired.
func (t *TenantStore) BoundDevice() (string, error) {
	var jid string
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deviceKey(t.location))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			jid = string(value)
			return nil
		})
	})
	if err != nil {
		return "", fmt.Errorf("reading device binding for %s: %w", t.location, err)
	}
	return jid, nil
}

func (t *TenantStore) BindDevice(jid string) error {
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(deviceKey(t.location), []byte(jid))
	})
}

// Close releases the view. The shared database stays open; pending writes
// are flushed by the sync worker and on database close.
func (t *TenantStore) Close() error {
	t.log.Debug("tenant store released", "location", t.location)
	return nil
}
