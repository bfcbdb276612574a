package service

import (
	"testing"

	"github.com/yourorg/tillpoint/internal/domain"
	"github.com/yourorg/tillpoint/internal/repository"
	"github.com/yourorg/tillpoint/internal/security/auth"
)

func newTestAuth() (*AuthService, *repository.MemoryStaffRepository) {
	repo := repository.NewMemoryStaffRepository()
	tm := auth.NewTokenManager("test-secret", "tillpoint-test")
	return NewAuthService(repo, tm, nil), repo
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestAuth()

	member, err := s.Register("jane", "Password123", domain.RoleCashier)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if member.ID == "" {
		t.Fatalf("expected generated id")
	}
	if member.PasswordHash == "Password123" || member.PasswordHash == "" {
		t.Fatalf("password stored unhashed")
	}

	// Duplicate username
	if _, err := s.Register("jane", "Password456", domain.RoleCashier); err == nil {
		t.Fatalf("expected duplicate username error")
	}

	// Login ok
	lr, err := s.Login("jane", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" || lr.TokenType != "Bearer" {
		t.Fatalf("expected bearer token on login")
	}
	if lr.Role != domain.RoleCashier {
		t.Fatalf("expected cashier role, got %s", lr.Role)
	}

	// Login wrong password
	if _, err := s.Login("jane", "Wrong"); err == nil {
		t.Fatalf("expected invalid credentials error")
	}

	// Login unknown user
	if _, err := s.Login("ghost", "Password123"); err == nil {
		t.Fatalf("expected invalid credentials error")
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestAuth()

	if _, err := s.Register("", "Password123", domain.RoleCashier); err == nil {
		t.Fatalf("expected error for empty username")
	}
	if _, err := s.Register("jane", "short", domain.RoleCashier); err == nil {
		t.Fatalf("expected error for short password")
	}
	if _, err := s.Register("jane", "Password123", "manager"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s, _ := newTestAuth()
	s.Register("boss", "Password123", domain.RoleAdmin)

	lr, err := s.Login("boss", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims, err := s.VerifyToken(lr.Token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Username != "boss" || claims.Role != domain.RoleAdmin {
		t.Fatalf("wrong claims: %+v", claims)
	}

	if _, err := s.VerifyToken(lr.Token + "tampered"); err == nil {
		t.Fatalf("expected error for tampered token")
	}
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestAuth()
	member, _ := s.Register("jane", "Password123", domain.RoleCashier)

	if err := s.ChangePassword(member.ID, "Password123", "NewPassword456"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	if _, err := s.Login("jane", "Password123"); err == nil {
		t.Fatalf("old password should no longer work")
	}
	if _, err := s.Login("jane", "NewPassword456"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}

	if err := s.ChangePassword(member.ID, "WrongOld", "AnotherPass789"); err == nil {
		t.Fatalf("expected error for wrong old password")
	}
	if err := s.ChangePassword(member.ID, "NewPassword456", "short"); err == nil {
		t.Fatalf("expected error for short new password")
	}
}

func TestDeactivatedStaffCannotLogin(t *testing.T) {
	s, repo := newTestAuth()
	member, _ := s.Register("jane", "Password123", domain.RoleCashier)

	if err := repo.Delete(member.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := s.Login("jane", "Password123"); err == nil {
		t.Fatalf("deactivated account should not log in")
	}
}

func TestEnsureAdmin(t *testing.T) {
	s, repo := newTestAuth()

	if err := s.EnsureAdmin("admin", "Bootstrap123"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	if _, err := s.Login("admin", "Bootstrap123"); err != nil {
		t.Fatalf("bootstrap admin cannot log in: %v", err)
	}

	// Idempotent once staff exists.
	if err := s.EnsureAdmin("admin2", "Other12345"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}
	members, _ := repo.List()
	if len(members) != 1 {
		t.Fatalf("expected a single staff member, got %d", len(members))
	}

	// No credentials configured and no staff yet is not an error.
	empty, _ := newTestAuth()
	if err := empty.EnsureAdmin("", ""); err != nil {
		t.Fatalf("ensure admin without credentials should be a no-op: %v", err)
	}
}
