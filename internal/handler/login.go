package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tillpoint/internal/security/ratelimit"
	"github.com/yourorg/tillpoint/internal/service"
)

// LoginRequest represents a login attempt
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler handles staff login
type LoginHandler struct {
	authService *service.AuthService
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewLoginHandler creates a new login handler
func NewLoginHandler(authService *service.AuthService, limiter *ratelimit.Limiter, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{
		authService: authService,
		limiter:     limiter,
		logger:      logger,
	}
}

// ServeHTTP handles POST /api/login
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if !h.limiter.Allow(req.Username) {
		h.logger.Warn("login rate limited", slog.String("username", req.Username))
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
