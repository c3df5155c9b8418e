package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wa-gateway/domain"
)

type capture struct {
	mu     sync.Mutex
	bodies []map[string]any
}

func (c *capture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		c.mu.Lock()
		c.bodies = append(c.bodies, payload)
		c.mu.Unlock()
	}
}

func (c *capture) received() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.bodies...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWebhook(t *testing.T, w *Webhook) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWebhook_Delivers_Pairing_Challenge(t *testing.T) {
	req := require.New(t)
	var c capture
	server := httptest.NewServer(c.handler(t))
	defer server.Close()

	webhook := NewWebhook(testLogger(), server.URL+"/whatsapp_web/qr_code", server.URL+"/whatsapp_js/new_login", time.Second, 8)
	startWebhook(t, webhook)

	webhook.PairingCode("loc-1", "user-7", "2@challenge")

	req.Eventually(func() bool { return len(c.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	payload := c.received()[0]
	req.Equal("2@challenge", payload["code"])
	req.Equal("loc-1", payload["location_identifier"])
	req.Equal("user-7", payload["user_id"])
}

func TestWebhook_Delivers_Login_Event(t *testing.T) {
	req := require.New(t)
	var c capture
	server := httptest.NewServer(c.handler(t))
	defer server.Close()

	webhook := NewWebhook(testLogger(), server.URL+"/qr", server.URL+"/login", time.Second, 8)
	startWebhook(t, webhook)

	webhook.LoggedIn("loc-1", "user-7", domain.ClientInfo{
		UserID:   "5491155550000",
		Platform: "android",
		PushName: "Front desk",
	})

	req.Eventually(func() bool { return len(c.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	payload := c.received()[0]
	req.Equal("success", payload["event_type"])
	req.Equal("5491155550000", payload["phone"])
	req.Equal("android", payload["client_platform"])
	req.Equal("Front desk", payload["client_pushname"])
	req.Equal("loc-1", payload["location_identifier"])
	req.Equal("user-7", payload["user_id"])
}

func TestWebhook_Failure_Is_Swallowed(t *testing.T) {
	req := require.New(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	webhook := NewWebhook(testLogger(), server.URL, server.URL, time.Second, 8)
	startWebhook(t, webhook)

	// Neither call panics or blocks, and the worker keeps running
	webhook.PairingCode("loc-1", "user-7", "2@challenge")
	webhook.LoggedIn("loc-1", "user-7", domain.ClientInfo{})

	req.Eventually(func() bool { return webhook.QueueDepth() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebhook_Full_Queue_Drops_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)

	// Worker never started: the queue fills up
	webhook := NewWebhook(testLogger(), "http://localhost:0", "http://localhost:0", time.Second, 2)

	for i := 0; i < 5; i++ {
		webhook.PairingCode("loc-1", "user-7", "2@challenge")
	}

	req.Equal(2, webhook.QueueDepth())
	req.Equal(uint64(3), webhook.Dropped())
}
