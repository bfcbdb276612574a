package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/security/middleware"
	"github.com/yourorg/tillpoint/internal/service"
)

// SalesHandler serves the sales ledger
type SalesHandler struct {
	sales  *service.SalesService
	authz  *security.AuthorizationService
	logger *slog.Logger
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(sales *service.SalesService, authz *security.AuthorizationService, logger *slog.Logger) *SalesHandler {
	return &SalesHandler{sales: sales, authz: authz, logger: logger}
}

// ServeHTTP handles GET /api/sales with optional ?from=&to= date range and
// ?cashier= filters. Cashiers may only read their own sales; admins read all.
func (h *SalesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	cashier := r.URL.Query().Get("cashier")
	if !h.authz.HasPermission(claims.Role, security.PermViewReports) {
		// Own-sales access only: pin the filter to the caller.
		if !h.authz.HasPermission(claims.Role, security.PermViewOwnSales) {
			writeError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		cashier = claims.UserID
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var (
		sales []*domain.Sale
		err   error
	)
	switch {
	case from != "" || to != "":
		sales, err = h.sales.ByDateRange(from, to)
	case cashier != "":
		sales, err = h.sales.ByCashier(cashier)
	default:
		sales, err = h.sales.List()
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Range and cashier filters compose.
	if cashier != "" && (from != "" || to != "") {
		filtered := sales[:0]
		for _, sale := range sales {
			if sale.CashierID == cashier {
				filtered = append(filtered, sale)
			}
		}
		sales = filtered
	}

	if sales == nil {
		sales = []*domain.Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

// SaleDetailHandler serves a single sale record
type SaleDetailHandler struct {
	sales *service.SalesService
	authz *security.AuthorizationService
}

// NewSaleDetailHandler creates a new sale detail handler
func NewSaleDetailHandler(sales *service.SalesService, authz *security.AuthorizationService) *SaleDetailHandler {
	return &SaleDetailHandler{sales: sales, authz: authz}
}

// ServeHTTP handles GET /api/sales/{id}
func (h *SaleDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	sale, err := h.sales.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if !h.authz.HasPermission(claims.Role, security.PermViewReports) && sale.CashierID != claims.UserID {
		writeError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
