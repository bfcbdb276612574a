// Package jsonstore persists the three till ledgers as independently keyed
// JSON documents (products, sales, users) in a directory. There is no schema
// versioning or migration; a document absent on disk loads as an empty
// ledger. Two processes sharing one directory can overwrite each other's
// writes; last write wins.
package jsonstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/repository"
)

const (
	productsDoc = "products.json"
	salesDoc    = "sales.json"
	usersDoc    = "users.json"
)

// Store binds in-memory repositories to a directory of JSON documents.
type Store struct {
	dir    string
	logger *slog.Logger

	products *repository.MemoryProductRepository
	sales    *repository.MemorySaleRepository
	staff    *repository.MemoryStaffRepository
}

// Open loads the documents found in dir into fresh in-memory repositories.
// Missing documents are treated as empty ledgers.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &Store{
		dir:      dir,
		logger:   logger,
		products: repository.NewMemoryProductRepository(),
		sales:    repository.NewMemorySaleRepository(),
		staff:    repository.NewMemoryStaffRepository(),
	}

	var products []*domain.Product
	if err := s.loadDoc(productsDoc, &products); err != nil {
		return nil, err
	}
	s.products.Replace(products)

	var sales []*domain.Sale
	if err := s.loadDoc(salesDoc, &sales); err != nil {
		return nil, err
	}
	s.sales.Replace(sales)

	var users []*persistedStaff
	if err := s.loadDoc(usersDoc, &users); err != nil {
		return nil, err
	}
	staff := make([]*domain.Staff, 0, len(users))
	for _, u := range users {
		staff = append(staff, u.toDomain())
	}
	s.staff.Replace(staff)

	logger.Info("json store opened",
		slog.String("dir", dir),
		slog.Int("products", len(products)),
		slog.Int("sales", len(sales)),
		slog.Int("users", len(staff)),
	)

	return s, nil
}

// Products returns the product repository view
func (s *Store) Products() *repository.MemoryProductRepository { return s.products }

// Sales returns the sales repository view
func (s *Store) Sales() *repository.MemorySaleRepository { return s.sales }

// Staff returns the staff repository view
func (s *Store) Staff() *repository.MemoryStaffRepository { return s.staff }

// Save writes all three documents. Each document is written to a temp file
// and renamed into place so a crash mid-write cannot truncate a ledger.
func (s *Store) Save() error {
	products, err := s.products.List()
	if err != nil {
		return err
	}
	if err := s.saveDoc(productsDoc, products); err != nil {
		return err
	}

	sales, err := s.sales.List()
	if err != nil {
		return err
	}
	if err := s.saveDoc(salesDoc, sales); err != nil {
		return err
	}

	staff, err := s.allStaff()
	if err != nil {
		return err
	}
	return s.saveDoc(usersDoc, staff)
}

// Export returns the three documents as a single bundle for backup or
// inspection. Password hashes stay out of the bundle via the Staff json tags.
func (s *Store) Export() (map[string]interface{}, error) {
	products, err := s.products.List()
	if err != nil {
		return nil, err
	}
	sales, err := s.sales.List()
	if err != nil {
		return nil, err
	}
	staff, err := s.staff.List()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"products": products,
		"sales":    sales,
		"users":    staff,
	}, nil
}

// persistedStaff is the on-disk shape of a staff record. The domain type
// hides the password hash from API serialization; the store still has to
// keep it across reloads.
type persistedStaff struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"passwordHash"`
	Role         domain.Role `json:"role"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

func (u *persistedStaff) toDomain() *domain.Staff {
	return &domain.Staff{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// allStaff lists inactive members too: deactivation must survive a reload.
func (s *Store) allStaff() ([]*persistedStaff, error) {
	members, err := s.staff.All()
	if err != nil {
		return nil, err
	}
	out := make([]*persistedStaff, 0, len(members))
	for _, m := range members {
		out = append(out, &persistedStaff{
			ID:           m.ID,
			Username:     m.Username,
			PasswordHash: m.PasswordHash,
			Role:         m.Role,
			IsActive:     m.IsActive,
			CreatedAt:    m.CreatedAt,
			UpdatedAt:    m.UpdatedAt,
		})
	}
	return out, nil
}

func (s *Store) loadDoc(name string, out interface{}) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *Store) saveDoc(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
