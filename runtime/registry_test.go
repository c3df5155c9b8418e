package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wa-gateway/contract"
)

func TestRegistry_Put_And_Get(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// Given an empty registry
	_, ok := registry.Get("loc-1")
	req.False(ok)
	req.Zero(registry.Len())

	// When a connection registers
	conn := &contract.Connection{Location: "loc-1"}
	registry.Put(conn)

	// Then it is resolvable by its location
	got, ok := registry.Get("loc-1")
	req.True(ok)
	req.Same(conn, got)
	req.Equal(1, registry.Len())
	req.Equal([]string{"loc-1"}, registry.Locations())
}

func TestRegistry_Put_Replaces_Existing(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	old := &contract.Connection{Location: "loc-1"}
	replacement := &contract.Connection{Location: "loc-1"}

	registry.Put(old)
	registry.Put(replacement)

	got, ok := registry.Get("loc-1")
	req.True(ok)
	req.Same(replacement, got)
	req.Equal(1, registry.Len())
}

func TestRegistry_Remove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	conn := &contract.Connection{Location: "loc-1"}
	registry.Put(conn)

	removed, ok := registry.Remove("loc-1")
	req.True(ok)
	req.Same(conn, removed)

	_, ok = registry.Get("loc-1")
	req.False(ok)

	// Removing an absent location is a no-op
	_, ok = registry.Remove("loc-1")
	req.False(ok)
}

func TestRegistry_Drop_Only_Evicts_Current_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	stale := &contract.Connection{Location: "loc-1"}
	current := &contract.Connection{Location: "loc-1"}

	// Given the stale connection was replaced
	registry.Put(stale)
	registry.Put(current)

	// When the stale session's late disconnect tries to drop itself
	req.False(registry.Drop(stale))

	// Then the replacement survives
	got, ok := registry.Get("loc-1")
	req.True(ok)
	req.Same(current, got)

	// And dropping the current connection works
	req.True(registry.Drop(current))
	req.Zero(registry.Len())
}
