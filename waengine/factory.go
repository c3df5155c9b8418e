// Package waengine connects the session lifecycle to the WhatsApp multi
// device protocol through whatsmeow. Each tenant gets its own client and
// its own device row in a shared sqlite credential store; received
// messages are cached per tenant so the read path never has to ask the
// protocol server for history.
package waengine

import (
	"context"
	"fmt"
	"log/slog"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"

	"wa-gateway/contract"
	"wa-gateway/domain/event"
	"wa-gateway/storage"
)

const eventBufferSize = 32

// Factory builds one engine per tenant on top of a shared sqlstore
// container. Implements contract.EngineFactory.
type Factory struct {
	log       *slog.Logger
	container *sqlstore.Container
	cache     *storage.MessageCache
}

// NewFactory opens the sqlite credential store. The dsn is a sqlite3
// connection string, for example "file:devices.db?_foreign_keys=on".
func NewFactory(ctx context.Context, log *slog.Logger, dsn string, cache *storage.MessageCache) (*Factory, error) {
	container, err := sqlstore.New(ctx, "sqlite3", dsn, wrapLogger(log.With("component", "sqlstore")))
	if err != nil {
		return nil, fmt.Errorf("opening device store: %w", err)
	}
	return &Factory{log: log, container: container, cache: cache}, nil
}

// New builds an engine for one tenant. When the tenant store remembers a
// paired device its credentials are reused, so initialization reconnects
// without a new pairing challenge. An unknown tenant gets a blank device
// and will go through the challenge flow.
func (f *Factory) New(ctx context.Context, location string, tenant contract.TenantStore) (contract.Engine, <-chan event.SessionEvent, error) {
	device, err := f.device(ctx, location, tenant)
	if err != nil {
		return nil, nil, err
	}

	log := f.log.With("location_identifier", location)
	client := whatsmeow.NewClient(device, wrapLogger(log.With("component", "whatsmeow")))

	engine := &Engine{
		log:      log,
		location: location,
		client:   client,
		cache:    f.cache,
		tenant:   tenant,
		events:   make(chan event.SessionEvent, eventBufferSize),
	}
	return engine, engine.events, nil
}

func (f *Factory) device(ctx context.Context, location string, tenant contract.TenantStore) (*store.Device, error) {
	bound, err := tenant.BoundDevice()
	if err != nil {
		return nil, fmt.Errorf("reading bound device for %s: %w", location, err)
	}
	if bound == "" {
		return f.container.NewDevice(), nil
	}

	jid, err := types.ParseJID(bound)
	if err != nil {
		f.log.Warn("stored device identifier is invalid, pairing from scratch",
			"location_identifier", location, "jid", bound, "error", err)
		return f.container.NewDevice(), nil
	}

	device, err := f.container.GetDevice(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("loading device %s: %w", jid, err)
	}
	if device == nil {
		f.log.Warn("bound device has no stored credentials, pairing from scratch",
			"location_identifier", location, "jid", bound)
		return f.container.NewDevice(), nil
	}
	return device, nil
}

// Close releases the shared credential store.
func (f *Factory) Close() error {
	return f.container.Close()
}
