package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/service"
)

// BestSellersHandler serves the best-sellers report
type BestSellersHandler struct {
	sales *service.SalesService
	authz *security.AuthorizationService
}

// NewBestSellersHandler creates a new best-sellers handler
func NewBestSellersHandler(sales *service.SalesService, authz *security.AuthorizationService) *BestSellersHandler {
	return &BestSellersHandler{sales: sales, authz: authz}
}

// ServeHTTP handles GET /api/reports/best-sellers?limit=
func (h *BestSellersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermViewReports) == nil {
		return
	}

	limit := service.DefaultBestSellerLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	rows, err := h.sales.BestSellers(limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// DashboardHandler serves the dashboard summary counters
type DashboardHandler struct {
	sales *service.SalesService
	authz *security.AuthorizationService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(sales *service.SalesService, authz *security.AuthorizationService) *DashboardHandler {
	return &DashboardHandler{sales: sales, authz: authz}
}

// ServeHTTP handles GET /api/reports/dashboard
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermViewReports) == nil {
		return
	}

	stats, err := h.sales.Dashboard()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DailyReportHandler serves per-day takings
type DailyReportHandler struct {
	sales *service.SalesService
	authz *security.AuthorizationService
}

// NewDailyReportHandler creates a new daily report handler
func NewDailyReportHandler(sales *service.SalesService, authz *security.AuthorizationService) *DailyReportHandler {
	return &DailyReportHandler{sales: sales, authz: authz}
}

// ServeHTTP handles GET /api/reports/daily?from=&to=. Without a range it
// reports the last 7 days.
func (h *DailyReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermViewReports) == nil {
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" && to == "" {
		now := time.Now()
		to = now.Format("2006-01-02")
		from = now.AddDate(0, 0, -6).Format("2006-01-02")
	}

	rows, err := h.sales.DailyReport(from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
