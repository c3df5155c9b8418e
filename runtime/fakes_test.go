package runtime_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"wa-gateway/contract"
	"wa-gateway/domain"
	"wa-gateway/domain/event"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeEngine is a scriptable protocol engine: tests push lifecycle events
// through Emit and control what Chats returns.
type fakeEngine struct {
	mu        sync.Mutex
	location  string
	events    chan event.SessionEvent
	closeOnce sync.Once
	closed    bool

	initErr  error
	info     domain.ClientInfo
	chats    []contract.ChatHandle
	chatsErr error
}

func newFakeEngine(location string) *fakeEngine {
	return &fakeEngine{
		location: location,
		events:   make(chan event.SessionEvent, 16),
		info:     domain.ClientInfo{UserID: "5491155550000", Platform: "android", PushName: "Front desk"},
	}
}

func (e *fakeEngine) Initialize(ctx context.Context) error { return e.initErr }

func (e *fakeEngine) Chats(ctx context.Context) ([]contract.ChatHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.chatsErr != nil {
		return nil, e.chatsErr
	}
	return e.chats, nil
}

func (e *fakeEngine) Info() domain.ClientInfo { return e.info }

func (e *fakeEngine) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.events)
	})
}

func (e *fakeEngine) Emit(ev event.SessionEvent) { e.events <- ev }

func (e *fakeEngine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// fakeChat is one conversation handle with canned messages.
type fakeChat struct {
	name    string
	group   bool
	msgs    []domain.Message
	msgsErr error
}

func (c fakeChat) Name() string  { return c.name }
func (c fakeChat) IsGroup() bool { return c.group }

func (c fakeChat) Messages(ctx context.Context, limit int) ([]domain.Message, error) {
	if c.msgsErr != nil {
		return nil, c.msgsErr
	}
	if limit >= len(c.msgs) {
		return c.msgs, nil
	}
	return c.msgs[:limit], nil
}

// fakeFactory hands out fakeEngines and remembers them per location so the
// test can drive their event streams.
type fakeFactory struct {
	mu      sync.Mutex
	err     error
	built   int
	engines map[string][]*fakeEngine
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{engines: make(map[string][]*fakeEngine)}
}

func (f *fakeFactory) New(ctx context.Context, location string, store contract.TenantStore) (contract.Engine, <-chan event.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	engine := newFakeEngine(location)
	f.built++
	f.engines[location] = append(f.engines[location], engine)
	return engine, engine.events, nil
}

func (f *fakeFactory) last(location string) *fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	engines := f.engines[location]
	if len(engines) == 0 {
		return nil
	}
	return engines[len(engines)-1]
}

func (f *fakeFactory) builtCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built
}

// fakeStore counts releases so tests can assert scoped acquisition.
type fakeStore struct {
	mu       sync.Mutex
	initErr  error
	closed   int
	device   string
	inited   bool
	location string
}

func (s *fakeStore) InitializeDatabase(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initErr != nil {
		return s.initErr
	}
	s.inited = true
	return nil
}

func (s *fakeStore) BoundDevice() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device, nil
}

func (s *fakeStore) BindDevice(jid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.device = jid
	return nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeStore) closedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeStores struct {
	mu         sync.Mutex
	acquireErr error
	initErr    error
	acquired   []*fakeStore
}

func (p *fakeStores) Acquire(ctx context.Context, location string) (contract.TenantStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	store := &fakeStore{location: location, initErr: p.initErr}
	p.acquired = append(p.acquired, store)
	return store, nil
}

func (p *fakeStores) lastStore() *fakeStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.acquired) == 0 {
		return nil
	}
	return p.acquired[len(p.acquired)-1]
}

// fakeNotifier records best-effort notifications.
type fakeNotifier struct {
	mu     sync.Mutex
	qrs    []string
	logins []domain.ClientInfo
}

func (n *fakeNotifier) PairingCode(location, userID, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.qrs = append(n.qrs, code)
}

func (n *fakeNotifier) LoggedIn(location, userID string, info domain.ClientInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logins = append(n.logins, info)
}

func (n *fakeNotifier) qrCodes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.qrs...)
}

func (n *fakeNotifier) loggedIn() []domain.ClientInfo {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.ClientInfo(nil), n.logins...)
}
