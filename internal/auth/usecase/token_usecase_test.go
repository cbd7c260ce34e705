package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	uc := NewTokenUsecase("s3cret")

	token, err := uc.IssueToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	principal, err := uc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if principal.Subject != "ops" {
		t.Errorf("Expected subject ops, got %s", principal.Subject)
	}
	if principal.ExpiresAt.IsZero() {
		t.Error("Expected expiry to be set")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, _ := NewTokenUsecase("one").IssueToken("ops", time.Hour)
	if _, err := NewTokenUsecase("two").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	uc := &tokenUsecase{secret: []byte("s"), now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	token, err := uc.IssueToken("ops", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	uc.now = time.Now
	if _, err := uc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected expired token rejected, got %v", err)
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "ops"})
	signed, _ := token.SignedString([]byte("s"))
	if _, err := NewTokenUsecase("s").ValidateToken(signed); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected HS512 token rejected, got %v", err)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	if _, err := NewTokenUsecase("s").IssueToken("", 0); err == nil {
		t.Error("Expected error for empty subject")
	}
}
