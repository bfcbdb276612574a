package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tillpoint/internal/storage/jsonstore"
)

// LedgerFlusher periodically writes the in-memory ledgers back to their JSON
// documents, and once more on shutdown. Flushing on an interval rather than
// on every mutation keeps checkout latency off the disk.
type LedgerFlusher struct {
	store    *jsonstore.Store
	logger   *slog.Logger
	interval time.Duration
}

// NewLedgerFlusher creates a new ledger flusher
func NewLedgerFlusher(store *jsonstore.Store, logger *slog.Logger, interval time.Duration) *LedgerFlusher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &LedgerFlusher{
		store:    store,
		logger:   logger,
		interval: interval,
	}
}

// Start begins the flush loop; it performs a final flush when ctx ends
func (w *LedgerFlusher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("ledger flusher started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.flush()
			w.logger.Info("ledger flusher stopped")
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// Flush writes the ledgers out immediately
func (w *LedgerFlusher) Flush() {
	w.flush()
}

func (w *LedgerFlusher) flush() {
	if err := w.store.Save(); err != nil {
		w.logger.Error("ledger flush failed", slog.String("error", err.Error()))
	}
}
