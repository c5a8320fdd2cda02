// Package auth issues and checks the bearer tokens used by the API.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"

	"uk.co.dudmesh.pinboard/internal/model"
)

const issuer = "pinboard"

func GenerateToken(userID model.UserID, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.StandardClaims{
		Subject:   string(userID),
		Issuer:    issuer,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// UserIDFromToken validates an HS256 token and returns its subject.
func UserIDFromToken(token, secret string) (model.UserID, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrorInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.Issuer != issuer {
		return "", model.ErrorInvalidToken
	}
	return model.UserID(claims.Subject), nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: missing bearer token", model.ErrorInvalidToken)
	}
	return strings.TrimSpace(token), nil
}
