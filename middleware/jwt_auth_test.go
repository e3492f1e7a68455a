package middleware

import (
	"testing"

	"stockwatch_backend/models"
)

func TestTokenRoundTrip(t *testing.T) {
	user := &models.User{ID: 42, Email: "user@example.com"}

	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Expected email claim, got %q", claims.Email)
	}

	userID, err := UserIDFromClaims(claims)
	if err != nil {
		t.Fatalf("Failed to resolve user ID: %v", err)
	}
	if userID != 42 {
		t.Errorf("Expected user ID 42, got %d", userID)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := ValidateToken("not-a-token"); err == nil {
		t.Fatal("Expected error for malformed token")
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	user := &models.User{ID: 1, Email: "user@example.com"}
	token, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := ValidateToken(tampered); err == nil {
		t.Fatal("Expected error for tampered token")
	}
}
