package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/tillpoint/internal/domain"
)

// PostgresSaleRepository implements domain.SaleRepository using PostgreSQL.
// Sales and their items are written in one transaction; the ledger is
// append-only so there are no update or delete statements.
type PostgresSaleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSaleRepository creates a new sale repository
func NewPostgresSaleRepository(db *sql.DB, logger *slog.Logger) *PostgresSaleRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSaleRepository{
		db:     db,
		logger: logger,
	}
}

// Record appends a completed sale and its items
func (r *PostgresSaleRepository) Record(sale *domain.Sale) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sales (id, total_amount, cashier_id, cashier_name, payment_method, payment_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		sale.ID,
		sale.TotalAmount,
		sale.CashierID,
		sale.CashierName,
		string(sale.PaymentMethod),
		sale.PaymentRef,
		sale.Timestamp,
	)
	if err != nil {
		r.logger.Error("failed to record sale",
			slog.String("sale_id", sale.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to record sale: %w", err)
	}

	for i, item := range sale.Items {
		_, err = tx.Exec(`
			INSERT INTO sale_items (sale_id, position, product_id, product_name, quantity, unit_price, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			sale.ID,
			i,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice,
			item.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("failed to record sale item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}

	return nil
}

// GetByID retrieves a sale with its items
func (r *PostgresSaleRepository) GetByID(id string) (*domain.Sale, error) {
	sale := &domain.Sale{}

	err := r.db.QueryRow(`
		SELECT id, total_amount, cashier_id, cashier_name, payment_method, payment_ref, created_at
		FROM sales
		WHERE id = $1
	`, id).Scan(
		&sale.ID,
		&sale.TotalAmount,
		&sale.CashierID,
		&sale.CashierName,
		&sale.PaymentMethod,
		&sale.PaymentRef,
		&sale.Timestamp,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	items, err := r.itemsFor(id)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	return sale, nil
}

// List returns all sales in ledger order, each with its items
func (r *PostgresSaleRepository) List() ([]*domain.Sale, error) {
	rows, err := r.db.Query(`
		SELECT id, total_amount, cashier_id, cashier_name, payment_method, payment_ref, created_at
		FROM sales
		ORDER BY created_at ASC
	`)
	if err != nil {
		r.logger.Error("failed to list sales",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.Sale
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID,
			&sale.TotalAmount,
			&sale.CashierID,
			&sale.CashierName,
			&sale.PaymentMethod,
			&sale.PaymentRef,
			&sale.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sale := range sales {
		items, err := r.itemsFor(sale.ID)
		if err != nil {
			return nil, err
		}
		sale.Items = items
	}

	return sales, nil
}

func (r *PostgresSaleRepository) itemsFor(saleID string) ([]domain.SaleItem, error) {
	rows, err := r.db.Query(`
		SELECT product_id, product_name, quantity, unit_price, line_total
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY position ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sale items: %w", err)
	}
	defer rows.Close()

	var items []domain.SaleItem
	for rows.Next() {
		var item domain.SaleItem
		err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}
