package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/observability/metrics"
	"github.com/yourorg/tillpoint/internal/payment"
)

// Checkout is the transient working set of one sale in progress. It is not
// persisted: dropping it before Complete leaves both ledgers untouched.
type Checkout struct {
	ID            string               `json:"id"`
	State         domain.CheckoutState `json:"state"`
	Cashier       domain.CashierRef    `json:"cashier"`
	Items         []domain.SaleItem    `json:"items"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	PaymentRef    string               `json:"paymentRef,omitempty"`
	SaleID        string               `json:"saleId,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`

	sale *domain.Sale
}

// CompletedSale returns the sale a completed checkout was recorded as, or
// nil while the checkout is still open.
func (c *Checkout) CompletedSale() *domain.Sale {
	return c.sale
}

// Total returns the running cart total
func (c *Checkout) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// CheckoutService runs the checkout workflow:
// Building -> AwaitingPayment (mobile money only) -> Completed | Aborted.
// The commit of a checkout is all-or-nothing: every line is validated
// against current stock before any deduction, and a single mutex serializes
// commits so no sale can interleave with another's validate/deduct window.
type CheckoutService struct {
	inventory  *InventoryService
	sales      *SalesService
	pending    domain.PendingPaymentRepository
	gateway    payment.Gateway
	alerts     AlertNotifier
	pendingTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	open     map[string]*Checkout // awaiting-payment checkouts by id
	byTill   map[string]string    // cashier id -> open checkout id
	commitMu sync.Mutex
}

// NewCheckoutService creates a new checkout service. pending and gateway may
// be nil, in which case mobile money is unavailable; alerts may be nil.
func NewCheckoutService(
	inventory *InventoryService,
	sales *SalesService,
	pending domain.PendingPaymentRepository,
	gateway payment.Gateway,
	alerts AlertNotifier,
	pendingTTL time.Duration,
	logger *slog.Logger,
) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	if pendingTTL <= 0 {
		pendingTTL = 2 * time.Minute
	}

	return &CheckoutService{
		inventory:  inventory,
		sales:      sales,
		pending:    pending,
		gateway:    gateway,
		alerts:     alerts,
		pendingTTL: pendingTTL,
		logger:     logger,
		now:        time.Now,
		open:       map[string]*Checkout{},
		byTill:     map[string]string{},
	}
}

// SetGateway wires the payment gateway after construction; the gateway's
// confirmation callback needs the service and the service needs the gateway.
func (s *CheckoutService) SetGateway(g payment.Gateway) {
	s.gateway = g
}

// Begin opens a new checkout in the Building state
func (s *CheckoutService) Begin(cashier domain.CashierRef) *Checkout {
	return &Checkout{
		ID:        uuid.NewString(),
		State:     domain.CheckoutBuilding,
		Cashier:   cashier,
		CreatedAt: s.now(),
	}
}

// AddItem puts one unit of the product in the cart: a new line at quantity 1,
// or an increment of the existing line. Stock is deliberately not checked
// here; overselling is caught once, at commit.
func (s *CheckoutService) AddItem(c *Checkout, productID string) error {
	if c.State != domain.CheckoutBuilding {
		return domain.ErrCheckoutClosed
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return s.setLine(c, i, c.Items[i].Quantity+1)
		}
	}

	product, err := s.inventory.Get(productID)
	if err != nil {
		return err
	}

	c.Items = append(c.Items, domain.SaleItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    1,
		UnitPrice:   product.Price,
		LineTotal:   product.Price,
	})
	return nil
}

// SetQuantity sets a line's quantity; zero or less removes the line. No
// upper bound is enforced while the cart is being edited.
func (s *CheckoutService) SetQuantity(c *Checkout, productID string, quantity int) error {
	if c.State != domain.CheckoutBuilding {
		return domain.ErrCheckoutClosed
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if quantity <= 0 {
				c.Items = append(c.Items[:i], c.Items[i+1:]...)
				return nil
			}
			return s.setLine(c, i, quantity)
		}
	}
	return domain.ErrProductNotFound
}

func (s *CheckoutService) setLine(c *Checkout, i, quantity int) error {
	c.Items[i].Quantity = quantity
	c.Items[i].LineTotal = c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return nil
}

// Complete commits a cash or card checkout. Mobile money goes through
// InitiateMobileMoney and the confirmation callback instead.
func (s *CheckoutService) Complete(ctx context.Context, c *Checkout, method domain.PaymentMethod) (*domain.Sale, error) {
	if method == domain.PaymentMobileMoney {
		return nil, domain.ErrCheckoutNotPayable
	}
	if !method.Valid() {
		return nil, &domain.ValidationError{Field: "paymentMethod", Reason: "unknown method"}
	}
	if c.State != domain.CheckoutBuilding {
		return nil, domain.ErrCheckoutClosed
	}
	if len(c.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	c.PaymentMethod = method
	return s.commit(c)
}

// InitiateMobileMoney parks the checkout in AwaitingPayment and asks the
// gateway to prompt the customer. Only one checkout per cashier can be
// awaiting payment: starting another abandons the previous one (last write
// wins, as on the physical till).
func (s *CheckoutService) InitiateMobileMoney(ctx context.Context, c *Checkout, phone string) error {
	if s.gateway == nil || s.pending == nil {
		return errors.New("mobile money is not configured")
	}
	if c.State != domain.CheckoutBuilding {
		return domain.ErrCheckoutClosed
	}
	if len(c.Items) == 0 {
		return domain.ErrEmptyCart
	}
	if phone == "" {
		return &domain.ValidationError{Field: "phone", Reason: "must not be empty"}
	}

	s.mu.Lock()
	if prevID, ok := s.byTill[c.Cashier.ID]; ok {
		if prev, ok := s.open[prevID]; ok {
			prev.State = domain.CheckoutAborted
			delete(s.open, prevID)
			s.pending.Delete(prevID)
			metrics.DecPendingPayments()
			s.logger.Info("abandoned previous pending checkout",
				slog.String("checkout_id", prevID),
				slog.String("cashier_id", c.Cashier.ID),
			)
		}
	}
	c.State = domain.CheckoutAwaitingPayment
	c.PaymentMethod = domain.PaymentMobileMoney
	s.open[c.ID] = c
	s.byTill[c.Cashier.ID] = c.ID
	s.mu.Unlock()

	now := s.now()
	pendingRecord := &domain.PendingPayment{
		CheckoutID: c.ID,
		CashierID:  c.Cashier.ID,
		Phone:      phone,
		Amount:     c.Total(),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.pendingTTL),
	}
	if err := s.pending.Put(pendingRecord); err != nil {
		s.reopen(c)
		return err
	}
	metrics.IncPendingPayments()

	_, err := s.gateway.Initiate(ctx, payment.InitiateRequest{
		CheckoutID: c.ID,
		Phone:      phone,
		Amount:     pendingRecord.Amount,
	})
	if err != nil {
		s.pending.Delete(c.ID)
		metrics.DecPendingPayments()
		s.reopen(c)
		return err
	}

	return nil
}

// reopen puts a checkout back in Building after a failed initiation
func (s *CheckoutService) reopen(c *Checkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.State = domain.CheckoutBuilding
	delete(s.open, c.ID)
	if s.byTill[c.Cashier.ID] == c.ID {
		delete(s.byTill, c.Cashier.ID)
	}
}

// Confirm completes an awaiting-payment checkout once the provider reports
// the customer paid
func (s *CheckoutService) Confirm(ctx context.Context, checkoutID, paymentRef string) (*domain.Sale, error) {
	s.mu.Lock()
	c, ok := s.open[checkoutID]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	if c.State != domain.CheckoutAwaitingPayment {
		return nil, domain.ErrCheckoutNotPayable
	}

	if _, err := s.pending.Get(checkoutID); err != nil {
		if errors.Is(err, domain.ErrPendingPaymentNotFound) {
			// Confirmation arrived after the pending window lapsed.
			s.Abort(c)
			return nil, domain.ErrCheckoutNotPayable
		}
		return nil, err
	}

	c.PaymentRef = paymentRef
	sale, err := s.commit(c)
	if err != nil {
		return nil, err
	}

	s.pending.Delete(checkoutID)
	metrics.DecPendingPayments()

	s.mu.Lock()
	delete(s.open, checkoutID)
	if s.byTill[c.Cashier.ID] == checkoutID {
		delete(s.byTill, c.Cashier.ID)
	}
	s.mu.Unlock()

	return sale, nil
}

// Get returns an open (awaiting payment) checkout by id
func (s *CheckoutService) Get(checkoutID string) (*Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.open[checkoutID]
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	return c, nil
}

// Abort discards the cart with no side effects on either ledger
func (s *CheckoutService) Abort(c *Checkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.State == domain.CheckoutCompleted {
		return
	}
	if c.State == domain.CheckoutAwaitingPayment {
		s.pending.Delete(c.ID)
		metrics.DecPendingPayments()
	}
	c.State = domain.CheckoutAborted
	delete(s.open, c.ID)
	if s.byTill[c.Cashier.ID] == c.ID {
		delete(s.byTill, c.Cashier.ID)
	}
}

// AbortStale aborts awaiting-payment checkouts whose pending record has
// expired. Called by the payment sweeper.
func (s *CheckoutService) AbortStale() int {
	s.mu.Lock()
	stale := []*Checkout{}
	for _, c := range s.open {
		if c.State != domain.CheckoutAwaitingPayment {
			continue
		}
		if _, err := s.pending.Get(c.ID); errors.Is(err, domain.ErrPendingPaymentNotFound) {
			stale = append(stale, c)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		s.logger.Info("aborting stale checkout",
			slog.String("checkout_id", c.ID),
			slog.String("cashier_id", c.Cashier.ID),
		)
		s.Abort(c)
	}
	return len(stale)
}

// commit is the all-or-nothing step: every line is checked against current
// stock first, and only if all pass is anything deducted and the sale
// recorded. A failed check leaves both ledgers exactly as they were.
func (s *CheckoutService) commit(c *Checkout) (*domain.Sale, error) {
	started := s.now()

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	for _, item := range c.Items {
		product, err := s.inventory.Get(item.ProductID)
		if err != nil {
			metrics.ObserveCheckout(string(c.PaymentMethod), "failed", s.now().Sub(started))
			return nil, err
		}
		if product.Stock < item.Quantity {
			metrics.ObserveCheckout(string(c.PaymentMethod), "insufficient_stock", s.now().Sub(started))
			return nil, &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			}
		}
	}

	for _, item := range c.Items {
		if _, err := s.inventory.Deduct(item.ProductID, item.Quantity); err != nil {
			metrics.ObserveCheckout(string(c.PaymentMethod), "failed", s.now().Sub(started))
			return nil, err
		}
	}

	sale, err := s.sales.Record(SaleDraft{
		Items:         c.Items,
		CashierID:     c.Cashier.ID,
		CashierName:   c.Cashier.Username,
		PaymentMethod: c.PaymentMethod,
		PaymentRef:    c.PaymentRef,
	})
	if err != nil {
		metrics.ObserveCheckout(string(c.PaymentMethod), "failed", s.now().Sub(started))
		return nil, err
	}

	c.State = domain.CheckoutCompleted
	c.SaleID = sale.ID
	c.sale = sale
	metrics.ObserveCheckout(string(c.PaymentMethod), "completed", s.now().Sub(started))

	if s.alerts != nil {
		s.alerts.SaleRecorded(sale)
	}

	return sale, nil
}
