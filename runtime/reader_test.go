package runtime_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/domain/event"
	"wa-gateway/errors"
	"wa-gateway/runtime"
)

type readerHarness struct {
	*orchestratorHarness
	reader *runtime.ChatReader
}

func newReaderHarness() *readerHarness {
	h := newOrchestratorHarness()
	return &readerHarness{
		orchestratorHarness: h,
		reader:              runtime.NewChatReader(discardLogger(), h.registry, h.tracker, h.orch),
	}
}

// connect drives loc-1 to ready and returns its engine.
func (h *readerHarness) connect(t *testing.T) *fakeEngine {
	t.Helper()
	_, err := h.orch.EnsureConnected(context.Background(), "loc-1", "user-7")
	require.NoError(t, err)
	engine := h.factory.last("loc-1")
	engine.Emit(event.Ready{Location: "loc-1"})
	require.Eventually(t, func() bool { return h.registry.Len() == 1 }, eventually, 5*time.Millisecond)
	return engine
}

func someChats() []contract.ChatHandle {
	return []contract.ChatHandle{
		fakeChat{name: "Front desk", msgs: []domain.Message{
			{From: "5491155550000", FromMe: false, Body: "hola"},
			{From: "5491155550000", FromMe: true, Body: "un momento"},
			{From: "5491155550000", FromMe: false, Body: "gracias"},
		}},
		fakeChat{name: "Suppliers", group: true, msgs: []domain.Message{
			{From: "5491144440000", FromMe: false, Body: "stock update"},
		}},
	}
}

func TestListChats_Requires_Location(t *testing.T) {
	h := newReaderHarness()

	_, err := h.reader.ListChats(context.Background(), "", 10)

	require.ErrorIs(t, err, errors.ErrLocationRequired)
}

func TestListChats_Not_Connected(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()

	_, err := h.reader.ListChats(context.Background(), "loc-1", 10)

	req.ErrorIs(err, errors.ErrNotConnected)
	// A failed read mutates nothing
	req.Zero(h.registry.Len())
	req.Zero(h.tracker.Count())
}

func TestListChats_While_Initializing(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()

	_, err := h.orch.EnsureConnected(context.Background(), "loc-1", "user-7")
	req.NoError(err)

	_, err = h.reader.ListChats(context.Background(), "loc-1", 10)

	req.ErrorIs(err, errors.ErrAlreadyInitializing)
}

func TestListChats_Normalizes_Chats(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = someChats()

	collection, err := h.reader.ListChats(context.Background(), "loc-1", 5)

	req.NoError(err)
	req.Len(collection, 2)

	frontDesk := collection["Front desk"]
	req.False(frontDesk.IsGroup)
	req.Len(frontDesk.Messages, 3)
	req.Equal("hola", frontDesk.Messages[0].Body)

	suppliers := collection["Suppliers"]
	req.True(suppliers.IsGroup)
	req.Len(suppliers.Messages, 1)
}

func TestListChats_Canonicalizes_Senders(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = []contract.ChatHandle{
		fakeChat{name: "Front desk", msgs: []domain.Message{
			{From: "5491155550000@c.us", FromMe: false, Body: "hola"},
			{From: "5491155550000@s.whatsapp.net", FromMe: false, Body: "sigo aca"},
		}},
	}

	collection, err := h.reader.ListChats(context.Background(), "loc-1", 5)

	req.NoError(err)
	messages := collection["Front desk"].Messages
	req.Len(messages, 2)
	// The JID server suffix never leaks to callers
	req.Equal("5491155550000", messages[0].From)
	req.Equal("5491155550000", messages[1].From)
}

func TestListChats_Bounds_Messages_Per_Chat(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = someChats()

	for _, limit := range []int{0, 1, 2, 100} {
		collection, err := h.reader.ListChats(context.Background(), "loc-1", limit)
		req.NoError(err)
		req.Len(collection, 2, "chat entries survive any limit")
		for name, chat := range collection {
			req.LessOrEqual(len(chat.Messages), limit, "chat %q exceeds limit %d", name, limit)
		}
	}
}

func TestListChats_Negative_Limit_Coerced_To_Zero(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = someChats()

	collection, err := h.reader.ListChats(context.Background(), "loc-1", -3)

	req.NoError(err)
	req.Len(collection, 2)
	for _, chat := range collection {
		req.Empty(chat.Messages)
	}
}

func TestListChats_Duplicate_Names_Last_Write_Wins(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = []contract.ChatHandle{
		fakeChat{name: "Reception", msgs: []domain.Message{{Body: "first"}}},
		fakeChat{name: "Reception", group: true, msgs: []domain.Message{{Body: "second"}}},
	}

	collection, err := h.reader.ListChats(context.Background(), "loc-1", 10)

	req.NoError(err)
	req.Len(collection, 1)
	req.True(collection["Reception"].IsGroup)
	req.Equal("second", collection["Reception"].Messages[0].Body)
}

func TestListChats_Fetch_Failure_Triggers_Recovery(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.mu.Lock()
	engine.chatsErr = fmt.Errorf("websocket closed")
	engine.mu.Unlock()

	_, err := h.reader.ListChats(context.Background(), "loc-1", 10)

	// The read surfaces as retryable...
	req.ErrorIs(err, errors.ErrReadFailure)
	// ...the stale session is gone and exactly one recovery is underway
	req.True(engine.Closed())
	req.Zero(h.registry.Len())
	req.Equal(1, h.tracker.Count())
	req.Equal(2, h.factory.builtCount())
}

func TestListChats_Nil_Chat_List_Is_Temporarily_Unavailable(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	h.connect(t)

	_, err := h.reader.ListChats(context.Background(), "loc-1", 10)

	req.ErrorIs(err, errors.ErrTemporarilyUnavailable)
	// No recovery for a nominally successful fetch
	req.Equal(1, h.registry.Len())
	req.Zero(h.tracker.Count())
}

func TestListChats_Message_Fetch_Failure_Propagates(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = []contract.ChatHandle{
		fakeChat{name: "Reception", msgsErr: fmt.Errorf("history not synced")},
	}

	_, err := h.reader.ListChats(context.Background(), "loc-1", 10)

	// Per-chat message errors are plain failures: no session teardown
	req.Error(err)
	req.NotErrorIs(err, errors.ErrReadFailure)
	req.Equal(1, h.registry.Len())
}

func TestRawChats_Returns_Unprocessed_Handles(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	engine := h.connect(t)
	engine.chats = someChats()

	chats, err := h.reader.RawChats(context.Background(), "loc-1")

	req.NoError(err)
	req.Len(chats, 2)
	req.Equal("Front desk", chats[0].Name())
}

// The full scenario from the gateway's point of view: not connected, then
// connecting, then dedup, then ready, then bounded reads.
func TestGateway_Session_Scenario(t *testing.T) {
	req := require.New(t)
	h := newReaderHarness()
	ctx := context.Background()

	_, err := h.reader.ListChats(ctx, "loc-1", 10)
	req.ErrorIs(err, errors.ErrNotConnected)

	status, err := h.orch.EnsureConnected(ctx, "loc-1", "user-7")
	req.NoError(err)
	req.Equal(domain.StatusConnecting, status)
	req.True(h.tracker.Active("loc-1"))

	status, err = h.orch.EnsureConnected(ctx, "loc-1", "user-7")
	req.NoError(err)
	req.Equal(domain.StatusAlreadyConnecting, status)

	engine := h.factory.last("loc-1")
	engine.Emit(event.Ready{Location: "loc-1"})
	req.Eventually(func() bool {
		return h.registry.Len() == 1 && !h.tracker.Active("loc-1")
	}, eventually, 5*time.Millisecond)

	engine.mu.Lock()
	engine.chats = someChats()
	engine.mu.Unlock()

	collection, err := h.reader.ListChats(ctx, "loc-1", 5)
	req.NoError(err)
	for _, chat := range collection {
		req.LessOrEqual(len(chat.Messages), 5)
	}
}
