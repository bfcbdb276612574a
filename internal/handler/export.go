package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
)

// ExportHandler dumps the three ledgers as one JSON bundle for backup.
// Password hashes never appear in the bundle; the staff type excludes them
// from serialization.
type ExportHandler struct {
	products domain.ProductRepository
	sales    domain.SaleRepository
	staff    domain.StaffRepository
	authz    *security.AuthorizationService
	logger   *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(products domain.ProductRepository, sales domain.SaleRepository, staff domain.StaffRepository, authz *security.AuthorizationService, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		products: products,
		sales:    sales,
		staff:    staff,
		authz:    authz,
		logger:   logger,
	}
}

// ServeHTTP handles GET /api/export (admin only)
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := requirePermission(w, r, h.authz, security.PermExportLedgers)
	if claims == nil {
		return
	}

	products, err := h.products.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sales, err := h.sales.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	staff, err := h.staff.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	exportedAt := time.Now().UTC()
	h.logger.Info("ledger export",
		slog.String("by", claims.Username),
		slog.Int("products", len(products)),
		slog.Int("sales", len(sales)),
	)

	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=tillpoint-export-%s.json", exportedAt.Format("2006-01-02")))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exportedAt": exportedAt,
		"products":   products,
		"sales":      sales,
		"users":      staff,
	})
}
