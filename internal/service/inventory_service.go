package service

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/observability/metrics"
)

// AlertNotifier receives till events worth surfacing to connected displays.
// Implementations must not block.
type AlertNotifier interface {
	LowStock(product *domain.Product)
	SaleRecorded(sale *domain.Sale)
}

// InventoryService owns the inventory ledger: the list of stocked products
// and every mutation of their stock counts.
type InventoryService struct {
	repo   domain.ProductRepository
	logger *slog.Logger
	alerts AlertNotifier
	now    func() time.Time
}

// NewInventoryService creates a new inventory service. alerts may be nil.
func NewInventoryService(repo domain.ProductRepository, alerts AlertNotifier, logger *slog.Logger) *InventoryService {
	if logger == nil {
		logger = slog.Default()
	}

	return &InventoryService{
		repo:   repo,
		logger: logger,
		alerts: alerts,
		now:    time.Now,
	}
}

// ProductDraft is the input to Add: a product without identity or timestamps.
type ProductDraft struct {
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Category domain.Category `json:"category"`
	Size     string          `json:"size"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	MinStock int             `json:"minStock"`
}

func (d *ProductDraft) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(d.Brand) == "" {
		return &domain.ValidationError{Field: "brand", Reason: "must not be empty"}
	}
	if !d.Category.Valid() {
		return &domain.ValidationError{Field: "category", Reason: "unknown category"}
	}
	if !d.Price.IsPositive() {
		return &domain.ValidationError{Field: "price", Reason: "must be positive"}
	}
	if d.Stock < 0 {
		return &domain.ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	if d.MinStock < 0 {
		return &domain.ValidationError{Field: "minStock", Reason: "must not be negative"}
	}
	return nil
}

// Add validates a draft, assigns identity and timestamps, and appends it to
// the ledger. Duplicate names are allowed: two entries with the same name
// are distinct products.
func (s *InventoryService) Add(draft ProductDraft) (*domain.Product, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	product := &domain.Product{
		ID:        uuid.NewString(),
		Name:      draft.Name,
		Brand:     draft.Brand,
		Category:  draft.Category,
		Size:      draft.Size,
		Price:     draft.Price,
		Stock:     draft.Stock,
		MinStock:  draft.MinStock,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(product); err != nil {
		return nil, err
	}

	s.logger.Info("product added",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
		slog.Int("stock", product.Stock),
	)
	s.afterMutation(product)

	return product, nil
}

// Update merges non-nil patch fields into the product and refreshes its
// update timestamp. Returns ErrProductNotFound for a missing id; the source
// system silently ignored those, which hid typos from operators.
func (s *InventoryService) Update(id string, patch domain.ProductPatch) (*domain.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Brand != nil {
		product.Brand = *patch.Brand
	}
	if patch.Category != nil {
		product.Category = *patch.Category
	}
	if patch.Size != nil {
		product.Size = *patch.Size
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if patch.MinStock != nil {
		product.MinStock = *patch.MinStock
	}

	draft := ProductDraft{
		Name:     product.Name,
		Brand:    product.Brand,
		Category: product.Category,
		Size:     product.Size,
		Price:    product.Price,
		Stock:    product.Stock,
		MinStock: product.MinStock,
	}
	if err := draft.validate(); err != nil {
		return nil, err
	}

	product.UpdatedAt = s.now()
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}

	s.afterMutation(product)
	return product, nil
}

// Delete removes a product. Sales keep their name snapshots, so historical
// reports are unaffected.
func (s *InventoryService) Delete(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("product deleted", slog.String("product_id", id))
	s.refreshLowStockGauge()
	return nil
}

// Deduct lowers stock by quantity, clamping at zero. The clamp is a backstop:
// checkout validates stock before calling this, so an over-deduction here
// means a caller skipped validation.
func (s *InventoryService) Deduct(id string, quantity int) (*domain.Product, error) {
	if quantity <= 0 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	remaining := product.Stock - quantity
	if remaining < 0 {
		s.logger.Warn("stock deduction clamped at zero",
			slog.String("product_id", id),
			slog.Int("stock", product.Stock),
			slog.Int("requested", quantity),
		)
		remaining = 0
	}

	product.Stock = remaining
	product.UpdatedAt = s.now()
	if err := s.repo.Update(product); err != nil {
		return nil, err
	}

	s.afterMutation(product)
	return product, nil
}

// Get returns a product by id
func (s *InventoryService) Get(id string) (*domain.Product, error) {
	return s.repo.GetByID(id)
}

// List returns all products in ledger order
func (s *InventoryService) List() ([]*domain.Product, error) {
	return s.repo.List()
}

// Search returns products whose name, brand, or category contains the query,
// case-insensitively, in ledger order. No ranking.
func (s *InventoryService) Search(query string) ([]*domain.Product, error) {
	products, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	matches := []*domain.Product{}
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) ||
			strings.Contains(strings.ToLower(string(p.Category)), q) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// ByCategory returns products of one category in ledger order
func (s *InventoryService) ByCategory(category domain.Category) ([]*domain.Product, error) {
	products, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	matches := []*domain.Product{}
	for _, p := range products {
		if p.Category == category {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// LowStock returns products at or below their minimum threshold, ledger order
func (s *InventoryService) LowStock() ([]*domain.Product, error) {
	products, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	low := []*domain.Product{}
	for _, p := range products {
		if p.LowOnStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *InventoryService) afterMutation(product *domain.Product) {
	if product.LowOnStock() && s.alerts != nil {
		s.alerts.LowStock(product)
	}
	s.refreshLowStockGauge()
}

func (s *InventoryService) refreshLowStockGauge() {
	low, err := s.LowStock()
	if err != nil {
		return
	}
	metrics.SetLowStockProducts(len(low))
}
