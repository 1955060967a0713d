package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vovakirdan/huddle-server/internal/core"
)

var (
	// ErrHostSecretRequired is returned when a host registers without the configured secret.
	ErrHostSecretRequired = errors.New("host secret required")
	// ErrInvalidHostSecret is returned when the host secret does not match.
	ErrInvalidHostSecret = errors.New("invalid host secret")
	// ErrInvalidReconnectToken is returned for unusable reconnection tokens.
	ErrInvalidReconnectToken = errors.New("invalid reconnect token")
)

// Service issues reconnection tokens and checks host credentials.
type Service struct {
	jwtConfig      *JWTConfig
	hostSecretHash string
	clock          clock.Clock
}

// NewService creates a new authentication service. An empty hostSecretHash
// disables the host secret check.
func NewService(jwtConfig *JWTConfig, hostSecretHash string, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		jwtConfig:      jwtConfig,
		hostSecretHash: hostSecretHash,
		clock:          clk,
	}
}

// VerifyHost checks the secret presented by a host identity.
func (s *Service) VerifyHost(secret string) error {
	if s.hostSecretHash == "" {
		return nil
	}
	if secret == "" {
		return ErrHostSecretRequired
	}
	if err := CompareSecret(s.hostSecretHash, secret); err != nil {
		return ErrInvalidHostSecret
	}
	return nil
}

// IssueReconnectToken signs a reconnection token for id.
func (s *Service) IssueReconnectToken(id core.Identity) (string, error) {
	token, err := GenerateReconnectToken(s.jwtConfig, id, s.clock.Now())
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ResolveReconnectToken returns the identity the token was issued to.
func (s *Service) ResolveReconnectToken(token string) (string, error) {
	claims, err := ValidateReconnectToken(s.jwtConfig, token, jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReconnectToken, err)
	}
	return claims.Identity, nil
}

// NewJWTConfig builds a JWTConfig for reconnection tokens.
func NewJWTConfig(secret string, ttl time.Duration) *JWTConfig {
	return &JWTConfig{
		Secret: []byte(secret),
		Issuer: "huddle-server",
		TTL:    ttl,
	}
}
