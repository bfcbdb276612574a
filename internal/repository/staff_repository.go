package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/tillpoint/internal/domain"
)

// PostgresStaffRepository implements domain.StaffRepository using PostgreSQL
type PostgresStaffRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStaffRepository creates a new staff repository
func NewPostgresStaffRepository(db *sql.DB, logger *slog.Logger) *PostgresStaffRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStaffRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new staff member
func (r *PostgresStaffRepository) Create(staff *domain.Staff) error {
	query := `
		INSERT INTO staff (id, username, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		staff.ID,
		staff.Username,
		staff.PasswordHash,
		string(staff.Role),
		staff.IsActive,
		staff.CreatedAt,
		staff.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create staff member",
			slog.String("username", staff.Username),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create staff member: %w", err)
	}

	return nil
}

// GetByID retrieves a staff member by ID
func (r *PostgresStaffRepository) GetByID(id string) (*domain.Staff, error) {
	return r.getOne(`
		SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM staff
		WHERE id = $1
	`, id)
}

// GetByUsername retrieves an active staff member by username
func (r *PostgresStaffRepository) GetByUsername(username string) (*domain.Staff, error) {
	return r.getOne(`
		SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM staff
		WHERE username = $1 AND is_active = true
	`, username)
}

func (r *PostgresStaffRepository) getOne(query, arg string) (*domain.Staff, error) {
	staff := &domain.Staff{}

	err := r.db.QueryRow(query, arg).Scan(
		&staff.ID,
		&staff.Username,
		&staff.PasswordHash,
		&staff.Role,
		&staff.IsActive,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to get staff member: %w", err)
	}

	return staff, nil
}

// Update updates an existing staff member
func (r *PostgresStaffRepository) Update(staff *domain.Staff) error {
	query := `
		UPDATE staff
		SET username = $1, password_hash = $2, role = $3, is_active = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.Exec(
		query,
		staff.Username,
		staff.PasswordHash,
		string(staff.Role),
		staff.IsActive,
		staff.UpdatedAt,
		staff.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update staff member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrStaffNotFound
	}

	return nil
}

// Delete deactivates a staff member (sets is_active to false)
func (r *PostgresStaffRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE staff SET is_active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete staff member: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrStaffNotFound
	}

	return nil
}

// List returns all active staff members
func (r *PostgresStaffRepository) List() ([]*domain.Staff, error) {
	query := `
		SELECT id, username, password_hash, role, is_active, created_at, updated_at
		FROM staff
		WHERE is_active = true
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("failed to list staff",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	defer rows.Close()

	var members []*domain.Staff
	for rows.Next() {
		staff := &domain.Staff{}
		err := rows.Scan(
			&staff.ID,
			&staff.Username,
			&staff.PasswordHash,
			&staff.Role,
			&staff.IsActive,
			&staff.CreatedAt,
			&staff.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan staff member: %w", err)
		}
		members = append(members, staff)
	}

	return members, rows.Err()
}
