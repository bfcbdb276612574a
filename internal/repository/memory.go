package repository

import (
	"sync"
	"time"

	"github.com/yourorg/tillpoint/internal/domain"
)

// In-memory repositories backing local (single-till) mode and tests. Slices
// preserve ledger order. Mutations copy records so callers cannot alias
// stored state.
//
// Nothing here coordinates two processes sharing one store; last write wins.

// MemoryProductRepository implements domain.ProductRepository in memory
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products []*domain.Product
}

// NewMemoryProductRepository creates an empty in-memory product repository
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{}
}

// Create appends a product to the ledger
func (r *MemoryProductRepository) Create(product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *product
	r.products = append(r.products, &clone)
	return nil
}

// GetByID returns a copy of the matching product
func (r *MemoryProductRepository) GetByID(id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id {
			clone := *p
			return &clone, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

// Update replaces the stored product with the given one
func (r *MemoryProductRepository) Update(product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.products {
		if p.ID == product.ID {
			clone := *product
			r.products[i] = &clone
			return nil
		}
	}
	return domain.ErrProductNotFound
}

// Delete removes the matching product
func (r *MemoryProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.products {
		if p.ID == id {
			r.products = append(r.products[:i], r.products[i+1:]...)
			return nil
		}
	}
	return domain.ErrProductNotFound
}

// List returns copies of all products in ledger order
func (r *MemoryProductRepository) List() ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

// Replace swaps the entire ledger contents; used when loading a persisted
// document.
func (r *MemoryProductRepository) Replace(products []*domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = make([]*domain.Product, 0, len(products))
	for _, p := range products {
		clone := *p
		r.products = append(r.products, &clone)
	}
}

// MemorySaleRepository implements domain.SaleRepository in memory.
// Append-only: there is no way to mutate a recorded sale.
type MemorySaleRepository struct {
	mu    sync.RWMutex
	sales []*domain.Sale
}

// NewMemorySaleRepository creates an empty in-memory sales ledger
func NewMemorySaleRepository() *MemorySaleRepository {
	return &MemorySaleRepository{}
}

// Record appends a sale
func (r *MemorySaleRepository) Record(sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, cloneSale(sale))
	return nil
}

// GetByID returns a copy of the matching sale
func (r *MemorySaleRepository) GetByID(id string) (*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sales {
		if s.ID == id {
			return cloneSale(s), nil
		}
	}
	return nil, domain.ErrSaleNotFound
}

// List returns copies of all sales in ledger order
func (r *MemorySaleRepository) List() ([]*domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Sale, 0, len(r.sales))
	for _, s := range r.sales {
		out = append(out, cloneSale(s))
	}
	return out, nil
}

// Replace swaps the entire ledger contents; used when loading a persisted
// document.
func (r *MemorySaleRepository) Replace(sales []*domain.Sale) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = make([]*domain.Sale, 0, len(sales))
	for _, s := range sales {
		r.sales = append(r.sales, cloneSale(s))
	}
}

func cloneSale(s *domain.Sale) *domain.Sale {
	clone := *s
	clone.Items = make([]domain.SaleItem, len(s.Items))
	copy(clone.Items, s.Items)
	return &clone
}

// MemoryStaffRepository implements domain.StaffRepository in memory
type MemoryStaffRepository struct {
	mu      sync.RWMutex
	members []*domain.Staff
}

// NewMemoryStaffRepository creates an empty in-memory staff repository
func NewMemoryStaffRepository() *MemoryStaffRepository {
	return &MemoryStaffRepository{}
}

// Create appends a staff member
func (r *MemoryStaffRepository) Create(staff *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *staff
	r.members = append(r.members, &clone)
	return nil
}

// GetByID returns a copy of the matching staff member
func (r *MemoryStaffRepository) GetByID(id string) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ID == id {
			clone := *m
			return &clone, nil
		}
	}
	return nil, domain.ErrStaffNotFound
}

// GetByUsername returns a copy of the matching active staff member
func (r *MemoryStaffRepository) GetByUsername(username string) (*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.Username == username && m.IsActive {
			clone := *m
			return &clone, nil
		}
	}
	return nil, domain.ErrStaffNotFound
}

// Update replaces the stored staff member with the given one
func (r *MemoryStaffRepository) Update(staff *domain.Staff) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.members {
		if m.ID == staff.ID {
			clone := *staff
			r.members[i] = &clone
			return nil
		}
	}
	return domain.ErrStaffNotFound
}

// Delete deactivates the matching staff member
func (r *MemoryStaffRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.ID == id {
			m.IsActive = false
			return nil
		}
	}
	return domain.ErrStaffNotFound
}

// List returns copies of all active staff members
func (r *MemoryStaffRepository) List() ([]*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Staff, 0, len(r.members))
	for _, m := range r.members {
		if !m.IsActive {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

// All returns every staff member, inactive ones included; deactivation has
// to survive a persistence round-trip.
func (r *MemoryStaffRepository) All() ([]*domain.Staff, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Staff, 0, len(r.members))
	for _, m := range r.members {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

// Replace swaps the entire contents; used when loading a persisted document.
func (r *MemoryStaffRepository) Replace(members []*domain.Staff) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = make([]*domain.Staff, 0, len(members))
	for _, m := range members {
		clone := *m
		r.members = append(r.members, &clone)
	}
}

// MemoryPendingPaymentRepository implements domain.PendingPaymentRepository
// in memory with expiry checked on read, for local mode and tests.
type MemoryPendingPaymentRepository struct {
	mu      sync.RWMutex
	pending map[string]*domain.PendingPayment
	now     func() time.Time
}

// NewMemoryPendingPaymentRepository creates an empty pending payment store
func NewMemoryPendingPaymentRepository() *MemoryPendingPaymentRepository {
	return &MemoryPendingPaymentRepository{
		pending: map[string]*domain.PendingPayment{},
		now:     time.Now,
	}
}

// Put stores a pending payment
func (r *MemoryPendingPaymentRepository) Put(pending *domain.PendingPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *pending
	r.pending[pending.CheckoutID] = &clone
	return nil
}

// Get returns the pending payment if it has not expired
func (r *MemoryPendingPaymentRepository) Get(checkoutID string) (*domain.PendingPayment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pending[checkoutID]
	if !ok || r.now().After(p.ExpiresAt) {
		return nil, domain.ErrPendingPaymentNotFound
	}
	clone := *p
	return &clone, nil
}

// Delete removes a pending payment
func (r *MemoryPendingPaymentRepository) Delete(checkoutID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, checkoutID)
	return nil
}

// ExpireAll marks every pending payment as already expired; test hook for
// exercising confirmation-after-expiry paths without waiting out a TTL.
func (r *MemoryPendingPaymentRepository) ExpireAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.pending {
		p.ExpiresAt = r.now().Add(-time.Second)
	}
}

// ListCheckoutIDs returns the checkout IDs of all unexpired pending payments
func (r *MemoryPendingPaymentRepository) ListCheckoutIDs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, p := range r.pending {
		if r.now().After(p.ExpiresAt) {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
