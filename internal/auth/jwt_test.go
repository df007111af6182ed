package auth_test

import (
	"testing"
	"time"

	"github.com/cateradmin/api/internal/auth"
	"github.com/google/uuid"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	sessionID := uuid.New()

	token, err := auth.GenerateToken(secret, sessionID, "food_packages", time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.SessionID != sessionID {
		t.Errorf("session ID: got %v, want %v", claims.SessionID, sessionID)
	}
	if claims.Scheme != "food_packages" {
		t.Errorf("scheme: got %v, want food_packages", claims.Scheme)
	}
	if claims.Issuer != "cateradmin" {
		t.Errorf("issuer: got %v", claims.Issuer)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "categories", time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.New(), "categories", -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
