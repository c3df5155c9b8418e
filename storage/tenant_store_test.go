package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTenantStore_Device_Binding_Roundtrip(t *testing.T) {
	req := require.New(t)
	stores := NewStores(openTestDB(t), slog.Default())

	store, err := stores.Acquire(context.Background(), "loc-1")
	req.NoError(err)
	req.NoError(store.InitializeDatabase(context.Background()))

	// A never-paired tenant has no device
	jid, err := store.BoundDevice()
	req.NoError(err)
	req.Empty(jid)

	// Binding survives re-acquisition
	req.NoError(store.BindDevice("5491155550000.0:1@s.whatsapp.net"))
	req.NoError(store.Close())

	again, err := stores.Acquire(context.Background(), "loc-1")
	req.NoError(err)
	jid, err = again.BoundDevice()
	req.NoError(err)
	req.Equal("5491155550000.0:1@s.whatsapp.net", jid)
}

func TestTenantStore_Bindings_Are_Per_Location(t *testing.T) {
	req := require.New(t)
	stores := NewStores(openTestDB(t), slog.Default())

	first, err := stores.Acquire(context.Background(), "loc-1")
	req.NoError(err)
	second, err := stores.Acquire(context.Background(), "loc-2")
	req.NoError(err)

	req.NoError(first.BindDevice("111@s.whatsapp.net"))

	jid, err := second.BoundDevice()
	req.NoError(err)
	req.Empty(jid)
}

func TestStores_Acquire_Rejects_Empty_Location(t *testing.T) {
	stores := NewStores(openTestDB(t), slog.Default())

	_, err := stores.Acquire(context.Background(), "")

	require.Error(t, err)
}

func TestTenantStore_InitializeDatabase_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	stores := NewStores(openTestDB(t), slog.Default())

	store, err := stores.Acquire(context.Background(), "loc-1")
	req.NoError(err)
	req.NoError(store.InitializeDatabase(context.Background()))
	req.NoError(store.InitializeDatabase(context.Background()))
}
