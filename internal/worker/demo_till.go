package worker

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/service"
)

// DemoTill generates random sales through the real checkout path so demo
// environments have report data to show. Disabled by default; enabled via
// the demo_till feature flag, never in production.
type DemoTill struct {
	inventory *service.InventoryService
	checkouts *service.CheckoutService
	cashier   domain.CashierRef
	logger    *slog.Logger
	interval  time.Duration
	maxLines  int
}

// NewDemoTill creates a new demo till worker
func NewDemoTill(
	inventory *service.InventoryService,
	checkouts *service.CheckoutService,
	cashier domain.CashierRef,
	logger *slog.Logger,
	interval time.Duration,
) *DemoTill {
	return &DemoTill{
		inventory: inventory,
		checkouts: checkouts,
		cashier:   cashier,
		logger:    logger,
		interval:  interval,
		maxLines:  3,
	}
}

// Start begins the demo sale loop
func (dt *DemoTill) Start(ctx context.Context) {
	dt.seedCatalog()

	ticker := time.NewTicker(dt.interval)
	defer ticker.Stop()

	dt.logger.Info("demo till started", slog.Duration("interval", dt.interval))

	for {
		select {
		case <-ctx.Done():
			dt.logger.Info("demo till stopped")
			return
		case <-ticker.C:
			dt.ringUpSale(ctx)
		}
	}
}

// ringUpSale builds a small random cart and commits it as a cash sale.
// Insufficient stock is expected once the demo catalog runs down; it is
// logged and skipped, exercising the same failure path a real till hits.
func (dt *DemoTill) ringUpSale(ctx context.Context) {
	products, err := dt.inventory.List()
	if err != nil || len(products) == 0 {
		return
	}

	checkout := dt.checkouts.Begin(dt.cashier)
	lines := 1 + rand.Intn(dt.maxLines)
	for i := 0; i < lines; i++ {
		p := products[rand.Intn(len(products))]
		if err := dt.checkouts.AddItem(checkout, p.ID); err != nil {
			continue
		}
	}
	if len(checkout.Items) == 0 {
		return
	}

	sale, err := dt.checkouts.Complete(ctx, checkout, domain.PaymentCash)
	if err != nil {
		dt.logger.Info("demo sale skipped", slog.String("reason", err.Error()))
		return
	}

	dt.logger.Debug("demo sale recorded",
		slog.String("sale_id", sale.ID),
		slog.String("total", sale.TotalAmount.String()),
	)
}

// seedCatalog stocks a handful of shelf staples when the ledger is empty
func (dt *DemoTill) seedCatalog() {
	products, err := dt.inventory.List()
	if err != nil || len(products) > 0 {
		return
	}

	drafts := []service.ProductDraft{
		{Name: "Johnnie Walker Black Label", Brand: "Johnnie Walker", Category: domain.CategoryWhisky, Size: "750ml", Price: decimal.NewFromInt(2500), Stock: 25, MinStock: 5},
		{Name: "Smirnoff Vodka", Brand: "Smirnoff", Category: domain.CategoryVodka, Size: "750ml", Price: decimal.NewFromInt(1800), Stock: 30, MinStock: 10},
		{Name: "Tusker Lager", Brand: "Tusker", Category: domain.CategoryBeer, Size: "500ml", Price: decimal.NewFromInt(200), Stock: 100, MinStock: 20},
		{Name: "Coca Cola", Brand: "Coca Cola", Category: domain.CategorySoftDrinks, Size: "500ml", Price: decimal.NewFromInt(80), Stock: 40, MinStock: 15},
	}
	for _, d := range drafts {
		if _, err := dt.inventory.Add(d); err != nil {
			dt.logger.Warn("failed to seed demo product",
				slog.String("name", d.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	dt.logger.Info("demo catalog seeded", slog.Int("products", len(drafts)))
}
