package auth

import (
	"errors"
	"testing"
	"time"

	"studio-settlement/internal/config"
	"studio-settlement/internal/domain"
)

func newTestService() *TokenService {
	return NewTokenService(config.Config{JWTSecret: "test-secret-0123456789", JWTExpiresIn: time.Hour})
}

func TestToken_RoundTrip(t *testing.T) {
	ts := newTestService()

	tok, exp, err := ts.GenerateToken(Identity{MemberID: 42, Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	id, err := ts.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if id.MemberID != 42 || !id.IsAdmin() {
		t.Errorf("got %+v", id)
	}
}

func TestToken_Rejects(t *testing.T) {
	ts := newTestService()
	tok, _, _ := ts.GenerateToken(Identity{MemberID: 1, Role: domain.RoleDesigner})

	other := NewTokenService(config.Config{JWTSecret: "another-secret-987654", JWTExpiresIn: time.Hour})
	if _, err := other.ParseToken(tok); err == nil {
		t.Error("token signed with another secret was accepted")
	}

	expired := newTestService()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, _ := expired.GenerateToken(Identity{MemberID: 1, Role: domain.RoleDesigner})
	if _, err := ts.ParseToken(old); err == nil {
		t.Error("expired token was accepted")
	}

	noRole, _, _ := ts.GenerateToken(Identity{MemberID: 1, Role: "root"})
	if _, err := ts.ParseToken(noRole); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("unknown role: expected ErrInvalidToken, got %v", err)
	}

	if _, err := ts.ParseToken("garbage"); err == nil {
		t.Error("garbage token was accepted")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("matching password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password: expected ErrBadCredentials, got %v", err)
	}
	if err := CheckPassword("", "anything"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("empty hash: expected ErrBadCredentials, got %v", err)
	}
}
