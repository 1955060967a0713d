package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vovakirdan/huddle-server/internal/core"
)

// ReconnectClaims names the identity a reconnection token was issued to.
type ReconnectClaims struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// GenerateReconnectToken signs a token proving ownership of id.
func GenerateReconnectToken(cfg *JWTConfig, id core.Identity, now time.Time) (string, error) {
	claims := ReconnectClaims{
		Identity: id.ID,
		Role:     id.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(cfg.Secret)
}

// ValidateReconnectToken parses and validates a reconnection token.
func ValidateReconnectToken(cfg *JWTConfig, tokenString string, opts ...jwt.ParserOption) (*ReconnectClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ReconnectClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*ReconnectClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if claims.Identity == "" {
		return nil, fmt.Errorf("token names no identity")
	}

	return claims, nil
}
