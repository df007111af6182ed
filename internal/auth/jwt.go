// Package auth mints the bearer tokens the gateway presents to the catalog
// API. Verification happens on the API side; ValidateToken exists for tests
// and for tooling that inspects a token.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "cateradmin"

type Claims struct {
	SessionID uuid.UUID `json:"session_id,omitempty"`
	Scheme    string    `json:"scheme"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, sessionID uuid.UUID, scheme string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: sessionID,
		Scheme:    scheme,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "position-sync",
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
