package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/repository"
)

func newTestSales() *SalesService {
	return NewSalesService(repository.NewMemorySaleRepository(), nil, nil, nil)
}

func line(name string, quantity int, unitPrice int64) domain.SaleItem {
	price := decimal.NewFromInt(unitPrice)
	return domain.SaleItem{
		ProductID:   "p-" + name,
		ProductName: name,
		Quantity:    quantity,
		UnitPrice:   price,
		LineTotal:   price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

func TestRecordComputesTotal(t *testing.T) {
	sales := newTestSales()

	sale, err := sales.Record(SaleDraft{
		Items:         []domain.SaleItem{line("Tusker Lager", 3, 200), line("Smirnoff Vodka", 1, 1800)},
		CashierID:     "c1",
		CashierName:   "jane",
		PaymentMethod: domain.PaymentCash,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if !sale.TotalAmount.Equal(decimal.NewFromInt(2400)) {
		t.Fatalf("expected total 2400, got %s", sale.TotalAmount)
	}
	if sale.ID == "" || sale.Timestamp.IsZero() {
		t.Fatalf("expected identity and timestamp")
	}
}

func TestRecordValidation(t *testing.T) {
	sales := newTestSales()

	if _, err := sales.Record(SaleDraft{PaymentMethod: domain.PaymentCash}); !errors.Is(err, domain.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if _, err := sales.Record(SaleDraft{
		Items:         []domain.SaleItem{line("Tusker Lager", 1, 200)},
		PaymentMethod: "barter",
	}); err == nil {
		t.Fatalf("expected error for unknown payment method")
	}

	bad := line("Tusker Lager", 2, 200)
	bad.LineTotal = decimal.NewFromInt(999)
	if _, err := sales.Record(SaleDraft{
		Items:         []domain.SaleItem{bad},
		PaymentMethod: domain.PaymentCash,
	}); err == nil {
		t.Fatalf("expected error for mismatched line total")
	}
}

func TestByDateRange(t *testing.T) {
	sales := newTestSales()

	days := []string{"2026-08-01", "2026-08-15", "2026-09-01"}
	for _, day := range days {
		ts, _ := time.Parse("2006-01-02", day)
		sales.now = func() time.Time { return ts }
		if _, err := sales.Record(SaleDraft{
			Items:         []domain.SaleItem{line("Tusker Lager", 1, 200)},
			CashierID:     "c1",
			PaymentMethod: domain.PaymentCash,
		}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	got, err := sales.ByDateRange("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("range failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sales in August, got %d", len(got))
	}

	// Bounds are inclusive.
	got, _ = sales.ByDateRange("2026-09-01", "2026-09-01")
	if len(got) != 1 {
		t.Fatalf("expected 1 sale on the boundary day, got %d", len(got))
	}

	if _, err := sales.ByDateRange("01/08/2026", "2026-08-31"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestByCashier(t *testing.T) {
	sales := newTestSales()

	for _, cashier := range []string{"c1", "c2", "c1"} {
		sales.Record(SaleDraft{
			Items:         []domain.SaleItem{line("Tusker Lager", 1, 200)},
			CashierID:     cashier,
			PaymentMethod: domain.PaymentCash,
		})
	}

	got, err := sales.ByCashier("c1")
	if err != nil {
		t.Fatalf("by cashier failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sales for c1, got %d", len(got))
	}
}

func TestBestSellersOrderAndTieBreak(t *testing.T) {
	sales := newTestSales()

	// Gin first seen before Rum; both end at quantity 4.
	carts := [][]domain.SaleItem{
		{line("Gilbeys Gin", 4, 1200)},
		{line("Captain Morgan", 4, 1000)},
		{line("Tusker Lager", 10, 200)},
	}
	for _, items := range carts {
		if _, err := sales.Record(SaleDraft{Items: items, PaymentMethod: domain.PaymentCash}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	rows, err := sales.BestSellers(0)
	if err != nil {
		t.Fatalf("best sellers failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ProductName != "Tusker Lager" {
		t.Fatalf("expected Tusker Lager first, got %s", rows[0].ProductName)
	}
	// Equal quantities keep first-seen order.
	if rows[1].ProductName != "Gilbeys Gin" || rows[2].ProductName != "Captain Morgan" {
		t.Fatalf("tie-break order wrong: %s, %s", rows[1].ProductName, rows[2].ProductName)
	}
	if !rows[0].Revenue.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected revenue 2000, got %s", rows[0].Revenue)
	}
}

func TestBestSellersAggregatesByName(t *testing.T) {
	sales := newTestSales()

	for i := 0; i < 3; i++ {
		sales.Record(SaleDraft{
			Items:         []domain.SaleItem{line("Tusker Lager", 2, 200)},
			PaymentMethod: domain.PaymentCash,
		})
	}

	rows, _ := sales.BestSellers(10)
	if len(rows) != 1 {
		t.Fatalf("expected a single aggregated row, got %d", len(rows))
	}
	if rows[0].QuantitySold != 6 {
		t.Fatalf("expected 6 units, got %d", rows[0].QuantitySold)
	}
}

// countingSaleRepo counts ledger scans so cache behavior is observable.
type countingSaleRepo struct {
	*repository.MemorySaleRepository
	lists int
}

func (r *countingSaleRepo) List() ([]*domain.Sale, error) {
	r.lists++
	return r.MemorySaleRepository.List()
}

func TestBestSellersCachedBelowLimit(t *testing.T) {
	repo := &countingSaleRepo{MemorySaleRepository: repository.NewMemorySaleRepository()}
	sales := NewSalesService(repo, nil, nil, nil)

	// Two distinct products, well under the default limit.
	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Tusker Lager", 2, 200)}, PaymentMethod: domain.PaymentCash})
	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Gilbeys Gin", 1, 1200)}, PaymentMethod: domain.PaymentCash})

	if _, err := sales.BestSellers(10); err != nil {
		t.Fatalf("best sellers failed: %v", err)
	}
	scans := repo.lists
	rows, err := sales.BestSellers(10)
	if err != nil {
		t.Fatalf("best sellers failed: %v", err)
	}
	if repo.lists != scans {
		t.Fatalf("second call rescanned the ledger: %d -> %d scans", scans, repo.lists)
	}
	if len(rows) != 2 || rows[0].ProductName != "Tusker Lager" {
		t.Fatalf("cached result wrong: %+v", rows)
	}

	// A smaller limit is also served from the cached full set.
	rows, _ = sales.BestSellers(1)
	if repo.lists != scans || len(rows) != 1 {
		t.Fatalf("limit 1 should come from cache: %d scans, %d rows", repo.lists, len(rows))
	}
}

func TestBestSellersResultDoesNotAliasCache(t *testing.T) {
	sales := newTestSales()
	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Tusker Lager", 5, 200)}, PaymentMethod: domain.PaymentCash})

	rows, _ := sales.BestSellers(10)
	rows[0].ProductName = "scribbled"
	rows[0].QuantitySold = 999

	again, _ := sales.BestSellers(10)
	if again[0].ProductName != "Tusker Lager" || again[0].QuantitySold != 5 {
		t.Fatalf("caller mutation leaked into the cache: %+v", again[0])
	}
}

func TestBestSellersLimit(t *testing.T) {
	sales := newTestSales()

	names := []string{"A", "B", "C", "D"}
	for i, name := range names {
		sales.Record(SaleDraft{
			Items:         []domain.SaleItem{line(name, i+1, 100)},
			PaymentMethod: domain.PaymentCash,
		})
	}

	rows, _ := sales.BestSellers(2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ProductName != "D" || rows[1].ProductName != "C" {
		t.Fatalf("expected top sellers D, C; got %s, %s", rows[0].ProductName, rows[1].ProductName)
	}
}

func TestTotalRevenue(t *testing.T) {
	sales := newTestSales()

	total, err := sales.Total()
	if err != nil {
		t.Fatalf("total failed: %v", err)
	}
	if !total.IsZero() {
		t.Fatalf("expected zero total for empty ledger, got %s", total)
	}

	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Tusker Lager", 3, 200)}, PaymentMethod: domain.PaymentCash})
	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Smirnoff Vodka", 1, 1800)}, PaymentMethod: domain.PaymentCard})

	total, _ = sales.Total()
	if !total.Equal(decimal.NewFromInt(2400)) {
		t.Fatalf("expected 2400, got %s", total)
	}
}

func TestDailyReportGroupsByDay(t *testing.T) {
	sales := newTestSales()

	days := []string{"2026-08-02", "2026-08-01", "2026-08-02"}
	for _, day := range days {
		ts, _ := time.Parse("2006-01-02", day)
		sales.now = func() time.Time { return ts }
		sales.Record(SaleDraft{
			Items:         []domain.SaleItem{line("Tusker Lager", 1, 200)},
			PaymentMethod: domain.PaymentCash,
		})
	}

	rows, err := sales.DailyReport("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("daily report failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 days, got %d", len(rows))
	}
	if rows[0].Date != "2026-08-01" || rows[1].Date != "2026-08-02" {
		t.Fatalf("expected date order, got %s, %s", rows[0].Date, rows[1].Date)
	}
	if rows[1].Sales != 2 || !rows[1].Revenue.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("wrong aggregation for 2026-08-02: %+v", rows[1])
	}
}

func TestDashboardCounts(t *testing.T) {
	staffRepo := repository.NewMemoryStaffRepository()
	staffRepo.Create(&domain.Staff{ID: "s1", Username: "jane", Role: domain.RoleCashier, IsActive: true})

	inv := newTestInventory()
	draft := whiskyDraft()
	draft.Stock = 2
	draft.MinStock = 5
	inv.Add(draft)

	sales := NewSalesService(repository.NewMemorySaleRepository(), staffRepo, inv, nil)
	sales.Record(SaleDraft{Items: []domain.SaleItem{line("Tusker Lager", 1, 200)}, PaymentMethod: domain.PaymentCash})

	stats, err := sales.Dashboard()
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if stats.SaleCount != 1 || stats.TodaysSales != 1 {
		t.Fatalf("wrong sale counts: %+v", stats)
	}
	if stats.LowStockItems != 1 {
		t.Fatalf("expected 1 low stock item, got %d", stats.LowStockItems)
	}
	if stats.StaffCount != 1 {
		t.Fatalf("expected 1 staff member, got %d", stats.StaffCount)
	}
	if !stats.TotalRevenue.Equal(decimal.NewFromInt(200)) || !stats.TodaysRevenue.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("wrong revenue: %+v", stats)
	}
}
