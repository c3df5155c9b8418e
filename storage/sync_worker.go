package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// SyncWorker flushes the database to disk on a fixed interval, mirroring the
// session backup sync of the original gateway. It runs under the supervisor.
type SyncWorker struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewSyncWorker(log *slog.Logger, db *badger.DB, interval time.Duration) *SyncWorker {
	return &SyncWorker{log: log, db: db, interval: interval}
}

func (w *SyncWorker) Run(ctx context.Context) error {
	w.log.Info("starting session sync worker", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			started := time.Now()
			if err := w.db.Sync(); err != nil {
				w.log.Error("session sync failed", "error", err)
				continue
			}
			w.log.Debug("session data synced", "took", time.Since(started))
		}
	}
}
