package domain

import "time"

// Role is a staff role. There are exactly two.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

// Staff represents a till operator or administrator.
type Staff struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Bcrypt hash, never serialized
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StaffRepository defines data access for staff members
type StaffRepository interface {
	Create(staff *Staff) error
	GetByID(id string) (*Staff, error)
	GetByUsername(username string) (*Staff, error)
	Update(staff *Staff) error
	Delete(id string) error
	List() ([]*Staff, error)
}
