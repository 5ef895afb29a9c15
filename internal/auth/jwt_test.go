package auth

import (
	"testing"
	"time"
)

// ============================================================================
// TEST: Token validation
// ============================================================================

func TestValidateAccessToken_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	claims := UserClaims{
		UserID:     "u1",
		Email:      "partner@example.com",
		CompanyIDs: []string{"c1", "c2"},
	}
	token, err := m.GenerateAccessToken(claims)
	if err != nil {
		t.Fatalf("Unexpected error signing token: %v", err)
	}

	parsed, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("Unexpected error validating token: %v", err)
	}
	if parsed.UserID != "u1" || parsed.Email != "partner@example.com" {
		t.Errorf("Claims did not survive the round trip: %+v", parsed)
	}
	if len(parsed.CompanyIDs) != 2 {
		t.Errorf("Expected 2 company IDs, got %d", len(parsed.CompanyIDs))
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", 15*time.Minute)
	verifier := NewJWTManager("secret-b", 15*time.Minute)

	token, err := issuer.GenerateAccessToken(UserClaims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Unexpected error signing token: %v", err)
	}

	if _, err := verifier.ValidateAccessToken(token); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager("test-secret", -1*time.Minute)

	token, err := m.GenerateAccessToken(UserClaims{UserID: "u1"})
	if err != nil {
		t.Fatalf("Unexpected error signing token: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); err != ErrTokenExpired {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	if _, err := m.ValidateAccessToken("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

// ============================================================================
// TEST: Company access claims
// ============================================================================

func TestHasCompany(t *testing.T) {
	claims := &UserClaims{UserID: "u1", CompanyIDs: []string{"c1"}}

	if !claims.HasCompany("c1") {
		t.Error("Expected access to c1")
	}
	if claims.HasCompany("c2") {
		t.Error("Expected no access to c2")
	}

	admin := &UserClaims{UserID: "u2", IsAdmin: true}
	if !admin.HasCompany("anything") {
		t.Error("Expected admin to access any company")
	}
}
