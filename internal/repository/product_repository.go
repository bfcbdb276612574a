package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/tillpoint/internal/domain"
)

// PostgresProductRepository implements domain.ProductRepository using PostgreSQL
type PostgresProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB, logger *slog.Logger) *PostgresProductRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new product
func (r *PostgresProductRepository) Create(product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, brand, category, size, price, stock, min_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(
		query,
		product.ID,
		product.Name,
		product.Brand,
		string(product.Category),
		product.Size,
		product.Price,
		product.Stock,
		product.MinStock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create product",
			slog.String("name", product.Name),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID
func (r *PostgresProductRepository) GetByID(id string) (*domain.Product, error) {
	product := &domain.Product{}

	query := `
		SELECT id, name, brand, category, size, price, stock, min_stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	err := r.db.QueryRow(query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Brand,
		&product.Category,
		&product.Size,
		&product.Price,
		&product.Stock,
		&product.MinStock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		r.logger.Error("failed to get product by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// Update writes all mutable fields of an existing product
func (r *PostgresProductRepository) Update(product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, brand = $2, category = $3, size = $4, price = $5,
		    stock = $6, min_stock = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.db.Exec(
		query,
		product.Name,
		product.Brand,
		string(product.Category),
		product.Size,
		product.Price,
		product.Stock,
		product.MinStock,
		product.UpdatedAt,
		product.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// Delete removes a product. Historical sales keep their name snapshots, so
// no cascade is needed.
func (r *PostgresProductRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// List returns all products in ledger order (creation order)
func (r *PostgresProductRepository) List() ([]*domain.Product, error) {
	query := `
		SELECT id, name, brand, category, size, price, stock, min_stock, created_at, updated_at
		FROM products
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list products",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Brand,
			&product.Category,
			&product.Size,
			&product.Price,
			&product.Stock,
			&product.MinStock,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan product row",
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}
