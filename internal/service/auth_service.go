package service

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles staff authentication. Passwords are stored only as
// bcrypt hashes.
type AuthService struct {
	staffRepo domain.StaffRepository
	tokens    *auth.TokenManager
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(staffRepo domain.StaffRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		staffRepo: staffRepo,
		tokens:    tokens,
		logger:    logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	UserID    string      `json:"user_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresIn int         `json:"expires_in"` // seconds
	TokenType string      `json:"token_type"`
}

// Login authenticates a staff member and returns a JWT token
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}

	staff, err := s.staffRepo.GetByUsername(username)
	if err != nil {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, errors.New("invalid credentials")
	}

	token, err := s.tokens.Generate(staff)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("staff logged in",
		slog.String("user_id", staff.ID),
		slog.String("username", staff.Username),
		slog.String("role", string(staff.Role)),
	)

	return &LoginResult{
		UserID:    staff.ID,
		Username:  staff.Username,
		Role:      staff.Role,
		Token:     token,
		ExpiresIn: int(auth.TokenLifetime.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// Register creates a new staff member. Only admins may call this; the
// handler enforces that.
func (s *AuthService) Register(username, password string, role domain.Role) (*domain.Staff, error) {
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, errors.New("role must be admin or cashier")
	}

	existing, err := s.staffRepo.GetByUsername(username)
	if err == nil && existing != nil {
		return nil, errors.New("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		return nil, errors.New("failed to register staff member")
	}

	now := time.Now()
	staff := &domain.Staff{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.staffRepo.Create(staff); err != nil {
		s.logger.Error("failed to create staff member", slog.String("error", err.Error()))
		return nil, errors.New("failed to register staff member")
	}

	return staff, nil
}

// ChangePassword changes a staff member's password
func (s *AuthService) ChangePassword(userID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	staff, err := s.staffRepo.GetByID(userID)
	if err != nil {
		return errors.New("staff member not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("invalid credentials")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.New("failed to change password")
	}

	staff.PasswordHash = string(hash)
	staff.UpdatedAt = time.Now()
	return s.staffRepo.Update(staff)
}

// VerifyToken verifies and parses a JWT token
func (s *AuthService) VerifyToken(tokenString string) (*auth.Claims, error) {
	return s.tokens.Validate(tokenString)
}

// EnsureAdmin creates an initial admin account when no staff exists yet.
// The credentials come from configuration, never from a built-in default.
func (s *AuthService) EnsureAdmin(username, password string) error {
	members, err := s.staffRepo.List()
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return nil
	}
	if username == "" || password == "" {
		s.logger.Warn("no staff configured and no bootstrap admin credentials set")
		return nil
	}

	if _, err := s.Register(username, password, domain.RoleAdmin); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", slog.String("username", username))
	return nil
}
