package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tillpoint/internal/service"
)

// PaymentSweeper periodically aborts checkouts whose mobile-money
// confirmation window has lapsed. The pending records themselves expire via
// Redis TTL; the sweeper closes out the matching in-memory checkouts so a
// till never stays stuck in AwaitingPayment.
type PaymentSweeper struct {
	checkouts *service.CheckoutService
	logger    *slog.Logger
	interval  time.Duration
}

// NewPaymentSweeper creates a new payment sweeper
func NewPaymentSweeper(checkouts *service.CheckoutService, logger *slog.Logger, interval time.Duration) *PaymentSweeper {
	return &PaymentSweeper{
		checkouts: checkouts,
		logger:    logger,
		interval:  interval,
	}
}

// Start begins the sweep loop
func (w *PaymentSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("payment sweeper started", slog.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("payment sweeper stopped")
			return
		case <-ticker.C:
			if n := w.checkouts.AbortStale(); n > 0 {
				w.logger.Info("stale checkouts aborted", slog.Int("count", n))
			}
		}
	}
}
