package security

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/tillpoint/internal/domain"
)

// Permission represents an action permission
type Permission string

const (
	PermManageProducts Permission = "manage_products"
	PermViewProducts   Permission = "view_products"
	PermRunCheckout    Permission = "run_checkout"
	PermViewReports    Permission = "view_reports"
	PermViewOwnSales   Permission = "view_own_sales"
	PermManageStaff    Permission = "manage_staff"
	PermExportLedgers  Permission = "export_ledgers"
)

// RolePermissions maps the two roles to their capability sets. Admins can do
// everything; cashiers run the till and see their own figures.
var RolePermissions = map[domain.Role][]Permission{
	domain.RoleAdmin: {
		PermManageProducts,
		PermViewProducts,
		PermRunCheckout,
		PermViewReports,
		PermViewOwnSales,
		PermManageStaff,
		PermExportLedgers,
	},
	domain.RoleCashier: {
		PermViewProducts,
		PermRunCheckout,
		PermViewOwnSales,
	},
}

// AuthorizationService handles authorization checks
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{
		logger: logger,
	}
}

// HasPermission checks if a role has a specific permission
func (as *AuthorizationService) HasPermission(role domain.Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// ValidatePermission validates that a role has a specific permission
func (as *AuthorizationService) ValidatePermission(role domain.Role, permission Permission) error {
	if !as.HasPermission(role, permission) {
		as.logger.Warn("permission denied",
			slog.String("role", string(role)),
			slog.String("permission", string(permission)),
		)
		return fmt.Errorf("permission denied: %s role cannot %s", role, permission)
	}
	return nil
}

// GetRolePermissions returns all permissions for a role
func (as *AuthorizationService) GetRolePermissions(role domain.Role) []Permission {
	return RolePermissions[role]
}
