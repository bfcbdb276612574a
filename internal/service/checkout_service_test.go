package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/payment"
	"github.com/yourorg/tillpoint/internal/repository"
)

type checkoutFixture struct {
	inventory *InventoryService
	sales     *SalesService
	pending   *repository.MemoryPendingPaymentRepository
	checkouts *CheckoutService
	cashier   domain.CashierRef
}

// newCheckoutFixture wires a full checkout stack over memory repositories,
// with a zero-delay payment simulator so mobile money confirms synchronously.
func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()

	f := &checkoutFixture{
		inventory: newTestInventory(),
		pending:   repository.NewMemoryPendingPaymentRepository(),
		cashier:   domain.CashierRef{ID: "c1", Username: "jane"},
	}
	f.sales = NewSalesService(repository.NewMemorySaleRepository(), nil, f.inventory, nil)
	f.checkouts = NewCheckoutService(f.inventory, f.sales, f.pending, nil, nil, time.Minute, nil)

	gateway := payment.NewSimulator(0, nil, nil)
	gateway.SetConfirmHandler(func(c payment.Confirmation) {
		f.checkouts.Confirm(context.Background(), c.CheckoutID, c.PaymentRef)
	})
	f.checkouts.SetGateway(gateway)

	return f
}

func (f *checkoutFixture) stock(t *testing.T, name string, stock int, price int64) *domain.Product {
	t.Helper()
	p, err := f.inventory.Add(ProductDraft{
		Name:     name,
		Brand:    name,
		Category: domain.CategoryBeer,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		MinStock: 1,
	})
	if err != nil {
		t.Fatalf("stocking %s failed: %v", name, err)
	}
	return p
}

func TestCheckoutCompletesAndDeductsStock(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	if err := f.checkouts.AddItem(c, beer.ID); err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if err := f.checkouts.SetQuantity(c, beer.ID, 2); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}

	sale, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if !sale.TotalAmount.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("expected total 200, got %s", sale.TotalAmount)
	}
	if sale.CashierID != "c1" || sale.CashierName != "jane" {
		t.Fatalf("cashier not stamped: %+v", sale)
	}
	if c.State != domain.CheckoutCompleted {
		t.Fatalf("expected completed state, got %s", c.State)
	}

	got, _ := f.inventory.Get(beer.ID)
	if got.Stock != 3 {
		t.Fatalf("expected stock 5-2=3, got %d", got.Stock)
	}

	recorded, _ := f.sales.List()
	if len(recorded) != 1 {
		t.Fatalf("expected 1 recorded sale, got %d", len(recorded))
	}
}

func TestCheckoutInsufficientStockLeavesLedgersUntouched(t *testing.T) {
	f := newCheckoutFixture(t)
	gin := f.stock(t, "Gilbeys Gin", 10, 1200)
	rum := f.stock(t, "Captain Morgan", 1, 1000)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, gin.ID)
	f.checkouts.SetQuantity(c, gin.ID, 2)
	f.checkouts.AddItem(c, rum.ID)
	f.checkouts.SetQuantity(c, rum.ID, 3)

	_, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash)
	var stockErr *domain.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if stockErr.ProductID != rum.ID || stockErr.Requested != 3 || stockErr.Available != 1 {
		t.Fatalf("error should name the offending product: %+v", stockErr)
	}

	// Neither ledger moved, including the line that would have passed.
	gotGin, _ := f.inventory.Get(gin.ID)
	gotRum, _ := f.inventory.Get(rum.ID)
	if gotGin.Stock != 10 || gotRum.Stock != 1 {
		t.Fatalf("stock mutated on failed checkout: gin=%d rum=%d", gotGin.Stock, gotRum.Stock)
	}
	recorded, _ := f.sales.List()
	if len(recorded) != 0 {
		t.Fatalf("sale recorded despite failed checkout")
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)

	c := f.checkouts.Begin(f.cashier)
	if _, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestCheckoutRejectsMobileMoneyViaComplete(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)

	if _, err := f.checkouts.Complete(context.Background(), c, domain.PaymentMobileMoney); !errors.Is(err, domain.ErrCheckoutNotPayable) {
		t.Fatalf("expected ErrCheckoutNotPayable, got %v", err)
	}
	if c.State != domain.CheckoutBuilding {
		t.Fatalf("checkout should still be editable, got %s", c.State)
	}
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	f.checkouts.AddItem(c, beer.ID)

	if len(c.Items) != 1 {
		t.Fatalf("expected single line, got %d", len(c.Items))
	}
	if c.Items[0].Quantity != 2 || !c.Items[0].LineTotal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("line not incremented: %+v", c.Items[0])
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	if err := f.checkouts.SetQuantity(c, beer.ID, 0); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(c.Items))
	}
}

func TestAddItemAllowsOverstockUntilCommit(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 1, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	// Building a cart beyond current stock is allowed; commit catches it.
	if err := f.checkouts.SetQuantity(c, beer.ID, 99); err != nil {
		t.Fatalf("set quantity failed: %v", err)
	}
	if _, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash); err == nil {
		t.Fatalf("expected insufficient stock at commit")
	}
}

func TestAbortHasNoSideEffects(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	f.checkouts.Abort(c)

	if c.State != domain.CheckoutAborted {
		t.Fatalf("expected aborted state, got %s", c.State)
	}
	got, _ := f.inventory.Get(beer.ID)
	if got.Stock != 5 {
		t.Fatalf("abort touched stock: %d", got.Stock)
	}
	recorded, _ := f.sales.List()
	if len(recorded) != 0 {
		t.Fatalf("abort recorded a sale")
	}

	// A closed checkout cannot be edited or completed.
	if err := f.checkouts.AddItem(c, beer.ID); !errors.Is(err, domain.ErrCheckoutClosed) {
		t.Fatalf("expected ErrCheckoutClosed, got %v", err)
	}
	if _, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash); !errors.Is(err, domain.ErrCheckoutClosed) {
		t.Fatalf("expected ErrCheckoutClosed, got %v", err)
	}
}

func TestMobileMoneyConfirmsSynchronouslyWithZeroDelay(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	f.checkouts.SetQuantity(c, beer.ID, 2)

	if err := f.checkouts.InitiateMobileMoney(context.Background(), c, "254700000001"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	// The zero-delay simulator delivered the confirmation before returning.
	if c.State != domain.CheckoutCompleted {
		t.Fatalf("expected completed, got %s", c.State)
	}
	if c.PaymentRef == "" {
		t.Fatalf("expected payment ref from gateway")
	}

	got, _ := f.inventory.Get(beer.ID)
	if got.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", got.Stock)
	}
	recorded, _ := f.sales.List()
	if len(recorded) != 1 || recorded[0].PaymentMethod != domain.PaymentMobileMoney {
		t.Fatalf("expected one mobile money sale")
	}
	if recorded[0].PaymentRef != c.PaymentRef {
		t.Fatalf("payment ref not carried onto sale")
	}

	// The checkout hands back the sale it was recorded as.
	if sale := c.CompletedSale(); sale == nil || sale.ID != recorded[0].ID {
		t.Fatalf("expected completed checkout to carry its sale")
	}
	if c.SaleID != recorded[0].ID {
		t.Fatalf("expected sale id on checkout, got %q", c.SaleID)
	}

	// Confirmed checkout is no longer open.
	if _, err := f.checkouts.Get(c.ID); !errors.Is(err, domain.ErrCheckoutNotFound) {
		t.Fatalf("expected checkout closed, got %v", err)
	}
}

func TestMobileMoneyValidation(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), c, "254700000001"); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	f.checkouts.AddItem(c, beer.ID)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), c, ""); err == nil {
		t.Fatalf("expected error for missing phone")
	}
}

// delayedGateway holds confirmations until released, standing in for a
// provider that answers later.
type delayedGateway struct {
	refs []string
}

func (g *delayedGateway) Initiate(ctx context.Context, req payment.InitiateRequest) (string, error) {
	ref := "TEST-" + req.CheckoutID
	g.refs = append(g.refs, ref)
	return ref, nil
}

func TestSecondMobileMoneyCheckoutAbandonsFirst(t *testing.T) {
	f := newCheckoutFixture(t)
	f.checkouts.SetGateway(&delayedGateway{})
	beer := f.stock(t, "Tusker Lager", 5, 100)

	first := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(first, beer.ID)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), first, "254700000001"); err != nil {
		t.Fatalf("first initiate failed: %v", err)
	}
	if first.State != domain.CheckoutAwaitingPayment {
		t.Fatalf("expected awaiting payment, got %s", first.State)
	}

	second := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(second, beer.ID)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), second, "254700000001"); err != nil {
		t.Fatalf("second initiate failed: %v", err)
	}

	if first.State != domain.CheckoutAborted {
		t.Fatalf("first checkout should be abandoned, got %s", first.State)
	}
	if _, err := f.checkouts.Confirm(context.Background(), first.ID, "late-ref"); !errors.Is(err, domain.ErrCheckoutNotFound) {
		t.Fatalf("abandoned checkout should not confirm, got %v", err)
	}

	// The second one still can.
	if _, err := f.checkouts.Confirm(context.Background(), second.ID, "ref-2"); err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
}

func TestConfirmAfterPendingExpiryAborts(t *testing.T) {
	f := newCheckoutFixture(t)
	f.checkouts.SetGateway(&delayedGateway{})
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), c, "254700000001"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	f.pending.ExpireAll()

	if _, err := f.checkouts.Confirm(context.Background(), c.ID, "late"); !errors.Is(err, domain.ErrCheckoutNotPayable) {
		t.Fatalf("expected ErrCheckoutNotPayable, got %v", err)
	}
	if c.State != domain.CheckoutAborted {
		t.Fatalf("expected aborted, got %s", c.State)
	}
	got, _ := f.inventory.Get(beer.ID)
	if got.Stock != 5 {
		t.Fatalf("expired confirmation touched stock: %d", got.Stock)
	}
}

func TestAbortStaleSweepsExpiredCheckouts(t *testing.T) {
	f := newCheckoutFixture(t)
	f.checkouts.SetGateway(&delayedGateway{})
	beer := f.stock(t, "Tusker Lager", 5, 100)

	c := f.checkouts.Begin(f.cashier)
	f.checkouts.AddItem(c, beer.ID)
	if err := f.checkouts.InitiateMobileMoney(context.Background(), c, "254700000001"); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}

	if n := f.checkouts.AbortStale(); n != 0 {
		t.Fatalf("nothing should be stale yet, swept %d", n)
	}

	f.pending.ExpireAll()

	if n := f.checkouts.AbortStale(); n != 1 {
		t.Fatalf("expected 1 stale checkout, swept %d", n)
	}
	if c.State != domain.CheckoutAborted {
		t.Fatalf("expected aborted, got %s", c.State)
	}
}

func TestConcurrentCheckoutsCannotOversell(t *testing.T) {
	f := newCheckoutFixture(t)
	beer := f.stock(t, "Tusker Lager", 10, 100)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			c := f.checkouts.Begin(f.cashier)
			if err := f.checkouts.AddItem(c, beer.ID); err != nil {
				done <- err
				return
			}
			if err := f.checkouts.SetQuantity(c, beer.ID, 3); err != nil {
				done <- err
				return
			}
			_, err := f.checkouts.Complete(context.Background(), c, domain.PaymentCash)
			done <- err
		}()
	}

	completed := 0
	for i := 0; i < 8; i++ {
		if err := <-done; err == nil {
			completed++
		} else {
			var stockErr *domain.InsufficientStockError
			if !errors.As(err, &stockErr) {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	// 10 units at 3 per cart allows exactly 3 completions.
	if completed != 3 {
		t.Fatalf("expected 3 completed checkouts, got %d", completed)
	}
	got, _ := f.inventory.Get(beer.ID)
	if got.Stock != 1 {
		t.Fatalf("expected 1 unit left, got %d", got.Stock)
	}
}
