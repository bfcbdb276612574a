package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/observability/metrics"
	"github.com/yourorg/tillpoint/pkg/cache"
)

const (
	dateLayout = "2006-01-02"

	bestSellersCacheKey = "reports:best_sellers"
	dashboardCacheKey   = "reports:dashboard"
	reportCacheTTL      = 30 * time.Second

	// DefaultBestSellerLimit bounds the best-sellers report.
	DefaultBestSellerLimit = 10
)

// SalesService owns the append-only sales ledger and derives its reports.
type SalesService struct {
	repo      domain.SaleRepository
	staffRepo domain.StaffRepository
	lowStock  func() ([]*domain.Product, error)
	cache     *cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewSalesService creates a new sales service. staffRepo and lowStock feed
// the dashboard counts and may be nil.
func NewSalesService(repo domain.SaleRepository, staffRepo domain.StaffRepository, inventory *InventoryService, logger *slog.Logger) *SalesService {
	if logger == nil {
		logger = slog.Default()
	}

	s := &SalesService{
		repo:      repo,
		staffRepo: staffRepo,
		cache:     cache.New(),
		logger:    logger,
		now:       time.Now,
	}
	if inventory != nil {
		s.lowStock = inventory.LowStock
	}
	return s
}

// SaleDraft is the input to Record: a sale without identity or timestamp.
type SaleDraft struct {
	Items         []domain.SaleItem
	CashierID     string
	CashierName   string
	PaymentMethod domain.PaymentMethod
	PaymentRef    string
}

// Record assigns identity and creation time, computes the total from the
// line totals, and appends the sale. The total is never taken from the
// caller; it always equals the item sum.
func (s *SalesService) Record(draft SaleDraft) (*domain.Sale, error) {
	if len(draft.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if !draft.PaymentMethod.Valid() {
		return nil, &domain.ValidationError{Field: "paymentMethod", Reason: "unknown method"}
	}
	for _, item := range draft.Items {
		if item.Quantity <= 0 {
			return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
		}
		if !item.LineTotal.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))) {
			return nil, &domain.ValidationError{Field: "lineTotal", Reason: "does not match quantity × unit price"}
		}
	}

	sale := &domain.Sale{
		ID:            uuid.NewString(),
		Items:         draft.Items,
		CashierID:     draft.CashierID,
		CashierName:   draft.CashierName,
		PaymentMethod: draft.PaymentMethod,
		PaymentRef:    draft.PaymentRef,
		Timestamp:     s.now(),
	}
	sale.TotalAmount = sale.ItemTotal()

	if err := s.repo.Record(sale); err != nil {
		return nil, err
	}

	s.cache.Delete(bestSellersCacheKey)
	s.cache.Delete(dashboardCacheKey)

	total, _ := sale.TotalAmount.Float64()
	metrics.ObserveSale(string(sale.PaymentMethod), total)

	s.logger.Info("sale recorded",
		slog.String("sale_id", sale.ID),
		slog.String("cashier", sale.CashierName),
		slog.String("total", sale.TotalAmount.String()),
		slog.String("payment_method", string(sale.PaymentMethod)),
	)

	return sale, nil
}

// Get returns a sale by id
func (s *SalesService) Get(id string) (*domain.Sale, error) {
	return s.repo.GetByID(id)
}

// List returns all sales in ledger order
func (s *SalesService) List() ([]*domain.Sale, error) {
	return s.repo.List()
}

// ByDateRange returns sales whose calendar date falls within [start, end],
// both in YYYY-MM-DD form. The comparison is on the date portion only.
func (s *SalesService) ByDateRange(start, end string) ([]*domain.Sale, error) {
	if _, err := time.Parse(dateLayout, start); err != nil {
		return nil, &domain.ValidationError{Field: "start", Reason: "expected YYYY-MM-DD"}
	}
	if _, err := time.Parse(dateLayout, end); err != nil {
		return nil, &domain.ValidationError{Field: "end", Reason: "expected YYYY-MM-DD"}
	}

	sales, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	matches := []*domain.Sale{}
	for _, sale := range sales {
		day := sale.Timestamp.Format(dateLayout)
		if day >= start && day <= end {
			matches = append(matches, sale)
		}
	}
	return matches, nil
}

// ByCashier returns sales stamped with the given cashier id
func (s *SalesService) ByCashier(cashierID string) ([]*domain.Sale, error) {
	sales, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	matches := []*domain.Sale{}
	for _, sale := range sales {
		if sale.CashierID == cashierID {
			matches = append(matches, sale)
		}
	}
	return matches, nil
}

// Today returns today's sales
func (s *SalesService) Today() ([]*domain.Sale, error) {
	today := s.now().Format(dateLayout)
	return s.ByDateRange(today, today)
}

// Total returns the sum of every sale's total amount
func (s *SalesService) Total() (decimal.Decimal, error) {
	sales, err := s.repo.List()
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.TotalAmount)
	}
	return total, nil
}

// BestSellers aggregates sale items by product name across all sales,
// summing quantity and revenue, sorted by quantity descending and truncated
// to limit. Ties keep first-seen order so the report is deterministic.
func (s *SalesService) BestSellers(limit int) ([]domain.BestSeller, error) {
	if limit <= 0 {
		limit = DefaultBestSellerLimit
	}

	// The cache always holds the full aggregation, so any limit can be
	// served from it.
	if cached, ok := s.cache.Get(bestSellersCacheKey); ok {
		if rows, ok := cached.([]domain.BestSeller); ok {
			return topSellers(rows, limit), nil
		}
	}

	sales, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	rows := []domain.BestSeller{}
	for _, sale := range sales {
		for _, item := range sale.Items {
			i, seen := index[item.ProductName]
			if !seen {
				index[item.ProductName] = len(rows)
				rows = append(rows, domain.BestSeller{ProductName: item.ProductName, Revenue: decimal.Zero})
				i = index[item.ProductName]
			}
			rows[i].QuantitySold += item.Quantity
			rows[i].Revenue = rows[i].Revenue.Add(item.LineTotal)
		}
	}

	// Insertion sort keeps first-seen order on equal quantities.
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].QuantitySold > rows[j-1].QuantitySold; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}

	s.cache.Set(bestSellersCacheKey, rows, reportCacheTTL)

	return topSellers(rows, limit), nil
}

// topSellers copies the leading rows so callers never alias the cached
// backing array.
func topSellers(rows []domain.BestSeller, limit int) []domain.BestSeller {
	if limit > len(rows) {
		limit = len(rows)
	}
	out := make([]domain.BestSeller, limit)
	copy(out, rows)
	return out
}

// DailyTotal is one row of the daily takings report
type DailyTotal struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DailyReport groups sales within [start, end] by calendar day, in date
// order, skipping days with no sales.
func (s *SalesService) DailyReport(start, end string) ([]DailyTotal, error) {
	sales, err := s.ByDateRange(start, end)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	rows := []DailyTotal{}
	for _, sale := range sales {
		day := sale.Timestamp.Format(dateLayout)
		i, seen := index[day]
		if !seen {
			index[day] = len(rows)
			rows = append(rows, DailyTotal{Date: day, Revenue: decimal.Zero})
			i = index[day]
		}
		rows[i].Sales++
		rows[i].Revenue = rows[i].Revenue.Add(sale.TotalAmount)
	}

	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].Date < rows[j-1].Date; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
	return rows, nil
}

// DashboardStats summarizes the till for the dashboard header.
type DashboardStats struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TodaysRevenue decimal.Decimal `json:"todaysRevenue"`
	SaleCount     int             `json:"saleCount"`
	TodaysSales   int             `json:"todaysSales"`
	LowStockItems int             `json:"lowStockItems"`
	StaffCount    int             `json:"staffCount"`
}

// Dashboard computes the summary counters shown on the admin dashboard
func (s *SalesService) Dashboard() (*DashboardStats, error) {
	if cached, ok := s.cache.Get(dashboardCacheKey); ok {
		if stats, ok := cached.(*DashboardStats); ok {
			return stats, nil
		}
	}

	total, err := s.Total()
	if err != nil {
		return nil, err
	}
	all, err := s.repo.List()
	if err != nil {
		return nil, err
	}
	todays, err := s.Today()
	if err != nil {
		return nil, err
	}

	todaysRevenue := decimal.Zero
	for _, sale := range todays {
		todaysRevenue = todaysRevenue.Add(sale.TotalAmount)
	}

	stats := &DashboardStats{
		TotalRevenue:  total,
		TodaysRevenue: todaysRevenue,
		SaleCount:     len(all),
		TodaysSales:   len(todays),
	}

	if s.lowStock != nil {
		low, err := s.lowStock()
		if err != nil {
			return nil, err
		}
		stats.LowStockItems = len(low)
	}
	if s.staffRepo != nil {
		members, err := s.staffRepo.List()
		if err != nil {
			return nil, err
		}
		stats.StaffCount = len(members)
	}

	s.cache.Set(dashboardCacheKey, stats, reportCacheTTL)
	return stats, nil
}
