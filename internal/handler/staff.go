package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/service"
)

// StaffHandler manages till staff accounts (admin only)
type StaffHandler struct {
	staffRepo domain.StaffRepository
	auth      *service.AuthService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(staffRepo domain.StaffRepository, auth *service.AuthService, authz *security.AuthorizationService, logger *slog.Logger) *StaffHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaffHandler{
		staffRepo: staffRepo,
		auth:      auth,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles GET /api/staff (list) and POST /api/staff (register)
func (h *StaffHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := requirePermission(w, r, h.authz, security.PermManageStaff)
	if claims == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		members, err := h.staffRepo.List()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if members == nil {
			members = []*domain.Staff{}
		}
		writeJSON(w, http.StatusOK, members)

	case http.MethodPost:
		var req struct {
			Username string      `json:"username"`
			Password string      `json:"password"`
			Role     domain.Role `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}

		member, err := h.auth.Register(req.Username, req.Password, req.Role)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.logger.Info("staff member registered",
			slog.String("username", member.Username),
			slog.String("role", string(member.Role)),
			slog.String("by", claims.Username),
		)
		writeJSON(w, http.StatusCreated, member)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// StaffDetailHandler serves and deactivates individual staff accounts
type StaffDetailHandler struct {
	staffRepo domain.StaffRepository
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewStaffDetailHandler creates a new staff detail handler
func NewStaffDetailHandler(staffRepo domain.StaffRepository, authz *security.AuthorizationService, logger *slog.Logger) *StaffDetailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaffDetailHandler{staffRepo: staffRepo, authz: authz, logger: logger}
}

// ServeHTTP handles GET and DELETE /api/staff/{id}
func (h *StaffDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := requirePermission(w, r, h.authz, security.PermManageStaff)
	if claims == nil {
		return
	}
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		member, err := h.staffRepo.GetByID(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, member)

	case http.MethodDelete:
		if id == claims.UserID {
			writeError(w, http.StatusBadRequest, "cannot deactivate your own account")
			return
		}
		if err := h.staffRepo.Delete(id); err != nil {
			writeDomainError(w, err)
			return
		}
		h.logger.Info("staff member deactivated",
			slog.String("staff_id", id),
			slog.String("by", claims.Username),
		)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
