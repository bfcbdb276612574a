package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/infrastructure/redis"
)

const pendingKeyPrefix = "pending_payment:"

// PendingPaymentRepository implements domain.PendingPaymentRepository using
// Redis. Entries expire on their own via TTL; the payment sweeper aborts the
// matching checkouts.
type PendingPaymentRepository struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPendingPaymentRepository creates a new pending payment repository
func NewPendingPaymentRepository(redisClient *redis.Client, logger *slog.Logger) *PendingPaymentRepository {
	return &PendingPaymentRepository{
		redis:  redisClient,
		logger: logger,
	}
}

// Put stores a pending payment with a TTL derived from its expiry time
func (r *PendingPaymentRepository) Put(pending *domain.PendingPayment) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending payment: %w", err)
	}

	ttl := time.Until(pending.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second // Minimum TTL
	}

	key := pendingKeyPrefix + pending.CheckoutID
	if err := r.redis.Set(context.Background(), key, string(data), ttl); err != nil {
		return fmt.Errorf("failed to store pending payment: %w", err)
	}

	r.logger.Debug("pending payment stored", slog.String("checkout_id", pending.CheckoutID))
	return nil
}

// Get retrieves a pending payment by checkout ID
func (r *PendingPaymentRepository) Get(checkoutID string) (*domain.PendingPayment, error) {
	data, err := r.redis.Get(context.Background(), pendingKeyPrefix+checkoutID)
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, domain.ErrPendingPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get pending payment: %w", err)
	}

	var pending domain.PendingPayment
	if err := json.Unmarshal([]byte(data), &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending payment: %w", err)
	}

	return &pending, nil
}

// Delete removes a pending payment
func (r *PendingPaymentRepository) Delete(checkoutID string) error {
	if err := r.redis.Delete(context.Background(), pendingKeyPrefix+checkoutID); err != nil {
		return fmt.Errorf("failed to delete pending payment: %w", err)
	}
	return nil
}

// ListCheckoutIDs returns the checkout IDs of all still-pending payments
func (r *PendingPaymentRepository) ListCheckoutIDs() ([]string, error) {
	keys, err := r.redis.Keys(context.Background(), pendingKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list pending payments: %w", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, pendingKeyPrefix))
	}

	return ids, nil
}
