package payment

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/reliability/circuitbreaker"
	"github.com/yourorg/tillpoint/internal/reliability/retry"
)

// InitiateRequest asks the provider to push a payment prompt to the
// customer's phone.
type InitiateRequest struct {
	CheckoutID string
	Phone      string
	Amount     decimal.Decimal
}

// Confirmation is delivered when the provider reports the customer paid.
type Confirmation struct {
	CheckoutID string
	PaymentRef string
}

// Gateway initiates mobile-money payments. The returned reference identifies
// the provider-side transaction.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (string, error)
}

// Simulator is a self-contained fake of a mobile-money provider. It never
// talks to a network: Initiate returns a synthetic reference and delivers a
// confirmation after the configured delay (immediately when the delay is
// zero, which is what tests use). FailEvery > 0 makes every Nth push fail
// transiently so the retry and breaker paths can be exercised in development.
type Simulator struct {
	delay     time.Duration
	onConfirm func(Confirmation)
	breaker   *circuitbreaker.CircuitBreaker
	retryCfg  *retry.Config
	logger    *slog.Logger

	// FailEvery makes every Nth push attempt fail with a transient error.
	FailEvery int

	attempts atomic.Int64
}

// NewSimulator creates a simulator delivering confirmations to onConfirm
// after delay.
func NewSimulator(delay time.Duration, onConfirm func(Confirmation), logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Simulator{
		delay:     delay,
		onConfirm: onConfirm,
		breaker:   circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second),
		retryCfg:  retry.DefaultConfig(),
		logger:    logger,
	}
}

// SetConfirmHandler replaces the confirmation callback. Needed because the
// checkout service and the gateway reference each other at wiring time.
func (s *Simulator) SetConfirmHandler(fn func(Confirmation)) {
	s.onConfirm = fn
}

// Initiate simulates pushing a payment prompt and schedules its confirmation
func (s *Simulator) Initiate(ctx context.Context, req InitiateRequest) (string, error) {
	if !s.breaker.AllowRequest() {
		return "", fmt.Errorf("payment provider unavailable")
	}

	ref, err := retry.Do(ctx, s.retryCfg, s.logger, "mobile_money_push", func(ctx context.Context) (string, error) {
		return s.push(req)
	})
	if err != nil {
		s.breaker.RecordFailure()
		return "", err
	}
	s.breaker.RecordSuccess()

	s.logger.Info("mobile money prompt sent",
		slog.String("checkout_id", req.CheckoutID),
		slog.String("phone", req.Phone),
		slog.String("amount", req.Amount.String()),
		slog.String("payment_ref", ref),
	)

	confirmation := Confirmation{CheckoutID: req.CheckoutID, PaymentRef: ref}
	if s.delay <= 0 {
		s.deliver(confirmation)
	} else {
		time.AfterFunc(s.delay, func() { s.deliver(confirmation) })
	}

	return ref, nil
}

func (s *Simulator) push(req InitiateRequest) (string, error) {
	n := s.attempts.Add(1)
	if s.FailEvery > 0 && n%int64(s.FailEvery) == 0 {
		return "", fmt.Errorf("provider timeout")
	}
	// Counter suffix keeps refs unique even within one clock tick.
	return fmt.Sprintf("MM%d-%d", time.Now().UnixNano(), n), nil
}

func (s *Simulator) deliver(c Confirmation) {
	if s.onConfirm == nil {
		return
	}
	s.onConfirm(c)
}
