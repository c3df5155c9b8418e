package waengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/proto/waHistorySync"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/domain/event"
	"wa-gateway/storage"
)

// Engine drives one tenant's WhatsApp session. Implements contract.Engine.
//
// Protocol events arrive on whatsmeow's handler goroutine; they are
// translated into session events and pushed on the stream the orchestrator
// folds. Message content never rides the stream, it goes straight into the
// per tenant cache.
type Engine struct {
	log      *slog.Logger
	location string
	client   *whatsmeow.Client
	cache    *storage.MessageCache
	tenant   contract.TenantStore
	events   chan event.SessionEvent

	handlerID uint32

	mu     sync.Mutex
	closed bool
}

// Initialize registers the protocol handler and connects. A device without
// stored credentials first opens the pairing challenge channel, so every
// challenge the server issues reaches the remote application before the
// connection settles.
func (e *Engine) Initialize(ctx context.Context) error {
	e.handlerID = e.client.AddEventHandler(e.handleEvent)

	if e.client.Store.ID == nil {
		qrChan, err := e.client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("opening pairing channel: %w", err)
		}
		go e.forwardChallenges(qrChan)
	}

	if err := e.client.Connect(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	return nil
}

func (e *Engine) forwardChallenges(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			e.emit(event.PairingCode{Location: e.location, Code: item.Code})
		case whatsmeow.QRChannelEventError:
			e.log.Warn("pairing channel failed", "error", item.Error)
		default:
			e.log.Debug("pairing channel closed", "event", item.Event)
		}
	}
}

func (e *Engine) handleEvent(raw any) {
	switch evt := raw.(type) {
	case *events.PairSuccess:
		if err := e.tenant.BindDevice(evt.ID.String()); err != nil {
			e.log.Error("persisting device binding", "jid", evt.ID, "error", err)
		}
		e.emit(event.Authenticated{Location: e.location})

	case *events.Connected:
		e.emit(event.Ready{Location: e.location, Info: e.Info()})

	case *events.LoggedOut:
		e.emit(event.AuthFailure{Location: e.location, Reason: evt.Reason.String()})

	case *events.StreamReplaced:
		e.emit(event.Disconnected{Location: e.location, Reason: "stream replaced"})

	case *events.Disconnected:
		e.emit(event.Disconnected{Location: e.location, Reason: "stream closed"})

	case *events.Message:
		e.storeMessage(evt.Info, evt.Message, "")

	case *events.HistorySync:
		e.importHistory(evt.Data)
	}
}

// storeMessage caches one message plus its untouched wire payload. chatName
// may be empty; the cache keeps a previously learned name in that case.
func (e *Engine) storeMessage(info types.MessageInfo, msg *waE2E.Message, chatName string) {
	body := textContent(msg)

	if chatName == "" && !info.IsGroup && !info.IsFromMe {
		chatName = info.PushName
	}

	meta := storage.ChatMeta{
		JID:     info.Chat.String(),
		Name:    chatName,
		IsGroup: info.IsGroup,
	}
	cached := storage.CachedMessage{
		ID:      uuid.New(),
		ChatJID: info.Chat.String(),
		From:    info.Sender.ToNonAD().String(),
		FromMe:  info.IsFromMe,
		Body:    body,
		At:      info.Timestamp,
	}

	if err := e.cache.Store(e.location, meta, cached); err != nil {
		e.log.Error("caching message", "chat", meta.JID, "error", err)
		return
	}
	if msg != nil {
		if err := e.cache.StoreRaw(e.location, meta.JID, cached.ID, msg); err != nil {
			e.log.Error("caching raw payload", "chat", meta.JID, "error", err)
		}
	}

	e.emit(event.MessageReceived{Location: e.location, ChatName: meta.Name, From: cached.From})
}

// importHistory replays the server side history snapshot into the cache.
// Conversations carry display names the live stream does not.
func (e *Engine) importHistory(data *waHistorySync.HistorySync) {
	for _, conv := range data.GetConversations() {
		jid, err := types.ParseJID(conv.GetID())
		if err != nil {
			e.log.Warn("skipping conversation with invalid identifier", "id", conv.GetID(), "error", err)
			continue
		}
		for _, historyMsg := range conv.GetMessages() {
			parsed, err := e.client.ParseWebMessage(jid, historyMsg.GetMessage())
			if err != nil {
				e.log.Debug("skipping unparseable history message", "chat", jid, "error", err)
				continue
			}
			e.storeMessage(parsed.Info, parsed.Message, conv.GetName())
		}
	}
	e.log.Info("history sync imported", "conversations", len(data.GetConversations()))
}

// Chats lists the tenant's cached conversations.
func (e *Engine) Chats(ctx context.Context) ([]contract.ChatHandle, error) {
	if !e.client.IsConnected() {
		return nil, fmt.Errorf("session for %s lost its connection", e.location)
	}

	metas, err := e.cache.Chats(e.location)
	if err != nil {
		return nil, err
	}
	handles := make([]contract.ChatHandle, 0, len(metas))
	for _, meta := range metas {
		handles = append(handles, &chatHandle{cache: e.cache, location: e.location, meta: meta})
	}
	return handles, nil
}

func (e *Engine) Info() domain.ClientInfo {
	info := domain.ClientInfo{
		Platform: e.client.Store.Platform,
		PushName: e.client.Store.PushName,
	}
	if id := e.client.Store.ID; id != nil {
		info.UserID = id.User
	}
	return info
}

// Close tears the session down and ends the event stream. Safe to call
// more than once; events arriving after Close are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.client.RemoveEventHandler(e.handlerID)
	e.client.Disconnect()
	close(e.events)
}

func (e *Engine) emit(ev event.SessionEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.events <- ev:
	default:
		e.log.Warn("event stream full, dropping", "event", fmt.Sprintf("%T", ev))
	}
}

// textContent pulls the human readable body out of the payload envelope.
func textContent(msg *waE2E.Message) string {
	switch {
	case msg == nil:
		return ""
	case msg.GetConversation() != "":
		return msg.GetConversation()
	case msg.GetExtendedTextMessage().GetText() != "":
		return msg.GetExtendedTextMessage().GetText()
	case msg.GetImageMessage().GetCaption() != "":
		return msg.GetImageMessage().GetCaption()
	case msg.GetVideoMessage().GetCaption() != "":
		return msg.GetVideoMessage().GetCaption()
	case msg.GetDocumentMessage().GetCaption() != "":
		return msg.GetDocumentMessage().GetCaption()
	default:
		return ""
	}
}
