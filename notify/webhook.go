// Package notify pushes session events to the remote application over HTTP.
// Notifications are best-effort by contract: they are queued, sent by a
// supervised worker, and a failure is logged and dropped, never surfaced to
// the session lifecycle.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wa-gateway/domain"
)

// qrPayload is the pairing challenge notification.
type qrPayload struct {
	Code               string `json:"code"`
	LocationIdentifier string `json:"location_identifier"`
	UserID             string `json:"user_id"`
}

// loginPayload reports a successful login with the session identity.
type loginPayload struct {
	EventType          string `json:"event_type"`
	UserID             string `json:"user_id"`
	Phone              string `json:"phone"`
	LocationIdentifier string `json:"location_identifier"`
	ClientPlatform     string `json:"client_platform"`
	ClientPushname     string `json:"client_pushname"`
}

type notification struct {
	id       uuid.UUID
	kind     string
	url      string
	location string
	payload  any
}

// Webhook queues notifications and drains them in its Run loop. Enqueueing
// never blocks: when the queue is full the notification is counted as
// dropped and forgotten, because session correctness must not depend on the
// remote application keeping up.
type Webhook struct {
	log      *slog.Logger
	client   *http.Client
	qrURL    string
	loginURL string
	queue    chan notification
	dropped  atomic.Uint64
}

func NewWebhook(log *slog.Logger, qrURL, loginURL string, timeout time.Duration, bufferSize int) *Webhook {
	return &Webhook{
		log:      log,
		client:   &http.Client{Timeout: timeout},
		qrURL:    qrURL,
		loginURL: loginURL,
		queue:    make(chan notification, bufferSize),
	}
}

func (w *Webhook) PairingCode(location, userID, code string) {
	w.enqueue(notification{
		id:       uuid.New(),
		kind:     "qr_code",
		url:      w.qrURL,
		location: location,
		payload: qrPayload{
			Code:               code,
			LocationIdentifier: location,
			UserID:             userID,
		},
	})
}

func (w *Webhook) LoggedIn(location, userID string, info domain.ClientInfo) {
	w.enqueue(notification{
		id:       uuid.New(),
		kind:     "new_login",
		url:      w.loginURL,
		location: location,
		payload: loginPayload{
			EventType:          "success",
			UserID:             userID,
			Phone:              info.UserID,
			LocationIdentifier: location,
			ClientPlatform:     info.Platform,
			ClientPushname:     info.PushName,
		},
	})
}

func (w *Webhook) enqueue(n notification) {
	select {
	case w.queue <- n:
	default:
		w.dropped.Add(1)
		w.log.Warn("notification queue full, dropping",
			"kind", n.kind, "location", n.location, "request_id", n.id)
	}
}

// Run drains the queue until the context ends. Implements contract.Worker.
func (w *Webhook) Run(ctx context.Context) error {
	w.log.Info("starting webhook notifier", "qr_url", w.qrURL, "login_url", w.loginURL)
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-w.queue:
			if err := w.post(ctx, n); err != nil {
				// Best-effort: log and move on.
				w.log.Error("notification failed",
					"kind", n.kind, "location", n.location, "request_id", n.id, "error", err)
				continue
			}
			w.log.Debug("notification delivered",
				"kind", n.kind, "location", n.location, "request_id", n.id)
		}
	}
}

func (w *Webhook) post(ctx context.Context, n notification) error {
	body, err := json.Marshal(n.payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("remote returned %s", resp.Status)
	}
	return nil
}

// QueueDepth is exported for telemetry.
func (w *Webhook) QueueDepth() int { return len(w.queue) }

// Dropped is the count of notifications discarded because the queue was full.
func (w *Webhook) Dropped() uint64 { return w.dropped.Load() }
