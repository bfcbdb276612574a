package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security"
	"github.com/yourorg/tillpoint/internal/service"
)

// CheckoutLine is one submitted cart line
type CheckoutLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest represents a till submitting a cart for completion
type CheckoutRequest struct {
	Items         []CheckoutLine       `json:"items"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	Phone         string               `json:"phone,omitempty"` // mobile money only
}

// CheckoutResponse is returned for an asynchronous (mobile money) checkout
type CheckoutResponse struct {
	CheckoutID string               `json:"checkoutId"`
	State      domain.CheckoutState `json:"state"`
}

// CheckoutHandler runs the checkout workflow for a submitted cart
type CheckoutHandler struct {
	checkouts *service.CheckoutService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkouts *service.CheckoutService, authz *security.AuthorizationService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkouts: checkouts,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles POST /api/checkouts. Cash and card carts complete
// synchronously and return the recorded sale; mobile money returns 202 with
// the checkout id to poll.
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := requirePermission(w, r, h.authz, security.PermRunCheckout)
	if claims == nil {
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	for _, line := range req.Items {
		// A submitted cart is final: lines cleared at the till must be
		// removed client-side, never sent as quantity zero.
		if line.Quantity <= 0 {
			writeError(w, http.StatusBadRequest, "line quantity must be positive")
			return
		}
	}

	checkout := h.checkouts.Begin(domain.CashierRef{ID: claims.UserID, Username: claims.Username})
	for _, line := range req.Items {
		if err := h.checkouts.AddItem(checkout, line.ProductID); err != nil {
			writeDomainError(w, err)
			return
		}
		if line.Quantity > 1 {
			if err := h.checkouts.SetQuantity(checkout, line.ProductID, line.Quantity); err != nil {
				writeDomainError(w, err)
				return
			}
		}
	}

	if req.PaymentMethod == domain.PaymentMobileMoney {
		if err := h.checkouts.InitiateMobileMoney(r.Context(), checkout, req.Phone); err != nil {
			writeDomainError(w, err)
			return
		}
		// The simulator may have confirmed synchronously already; if so,
		// return the recorded sale so every 201 has the same shape.
		if sale := checkout.CompletedSale(); sale != nil {
			writeJSON(w, http.StatusCreated, sale)
			return
		}
		writeJSON(w, http.StatusAccepted, CheckoutResponse{
			CheckoutID: checkout.ID,
			State:      checkout.State,
		})
		return
	}

	sale, err := h.checkouts.Complete(r.Context(), checkout, req.PaymentMethod)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sale)
}

// CheckoutStatusHandler reports the state of an awaiting-payment checkout
type CheckoutStatusHandler struct {
	checkouts *service.CheckoutService
	authz     *security.AuthorizationService
}

// NewCheckoutStatusHandler creates a new checkout status handler
func NewCheckoutStatusHandler(checkouts *service.CheckoutService, authz *security.AuthorizationService) *CheckoutStatusHandler {
	return &CheckoutStatusHandler{checkouts: checkouts, authz: authz}
}

// ServeHTTP handles GET /api/checkouts/{id}
func (h *CheckoutStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermRunCheckout) == nil {
		return
	}

	checkout, err := h.checkouts.Get(r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

// CheckoutConfirmHandler lets the operator trigger a confirmation manually,
// standing in for the provider callback of a real integration.
type CheckoutConfirmHandler struct {
	checkouts *service.CheckoutService
	authz     *security.AuthorizationService
	logger    *slog.Logger
}

// NewCheckoutConfirmHandler creates a new checkout confirm handler
func NewCheckoutConfirmHandler(checkouts *service.CheckoutService, authz *security.AuthorizationService, logger *slog.Logger) *CheckoutConfirmHandler {
	return &CheckoutConfirmHandler{
		checkouts: checkouts,
		authz:     authz,
		logger:    logger,
	}
}

// ServeHTTP handles POST /api/checkouts/{id}/confirm
func (h *CheckoutConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, h.authz, security.PermRunCheckout) == nil {
		return
	}

	var body struct {
		PaymentRef string `json:"paymentRef"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request")
			return
		}
	}

	sale, err := h.checkouts.Confirm(r.Context(), r.PathValue("id"), body.PaymentRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}
