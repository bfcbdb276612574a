package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCheckoutNotFound       = errors.New("checkout not found")
	ErrPendingPaymentNotFound = errors.New("pending payment not found")
	ErrCheckoutNotPayable     = errors.New("checkout is not awaiting payment")
	ErrCheckoutClosed         = errors.New("checkout is already closed")
	ErrEmptyCart              = errors.New("cart is empty")
)

// CheckoutState is the lifecycle state of an in-progress checkout.
type CheckoutState string

const (
	CheckoutBuilding        CheckoutState = "building"
	CheckoutAwaitingPayment CheckoutState = "awaiting_payment"
	CheckoutCompleted       CheckoutState = "completed"
	CheckoutAborted         CheckoutState = "aborted"
)

// InsufficientStockError is the one domain error a checkout commit can
// produce: a cart line exceeds current stock. The whole checkout fails and
// neither ledger is touched.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// CashierRef identifies the operator a sale is stamped with.
type CashierRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PendingPayment tracks a mobile-money checkout that has been initiated but
// not yet confirmed. Stored with a TTL; a sweeper aborts checkouts whose
// pending record has expired.
type PendingPayment struct {
	CheckoutID string          `json:"checkoutId"`
	CashierID  string          `json:"cashierId"`
	Phone      string          `json:"phone"`
	Amount     decimal.Decimal `json:"amount"`
	PaymentRef string          `json:"paymentRef"`
	CreatedAt  time.Time       `json:"createdAt"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

// PendingPaymentRepository defines data access for pending mobile-money
// confirmations.
type PendingPaymentRepository interface {
	Put(pending *PendingPayment) error
	Get(checkoutID string) (*PendingPayment, error)
	Delete(checkoutID string) error
	ListCheckoutIDs() ([]string, error)
}
