package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/security/auth"
	"github.com/yourorg/tillpoint/internal/security/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain errors onto HTTP statuses
func writeDomainError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var insufficient *domain.InsufficientStockError

	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":       insufficient.Error(),
			"productId":   insufficient.ProductID,
			"productName": insufficient.ProductName,
			"requested":   insufficient.Requested,
			"available":   insufficient.Available,
		})
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrStaffNotFound),
		errors.Is(err, domain.ErrCheckoutNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCheckoutClosed),
		errors.Is(err, domain.ErrCheckoutNotPayable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requirePermission returns the request's claims if they carry the
// permission, writing the error response otherwise.
func requirePermission(w http.ResponseWriter, r *http.Request, authz *security.AuthorizationService, perm security.Permission) *auth.Claims {
	claims := middleware.ClaimsFrom(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing auth")
		return nil
	}
	if err := authz.ValidatePermission(claims.Role, perm); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return nil
	}
	return claims
}
