package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/quickcase/quickcase-authn/internal/platform/telemetry"
)

// TokenValidatorConfig holds configuration for validating bearer tokens
// issued by the identity provider.
type TokenValidatorConfig struct {
	JWKSUrl  string
	Issuer   string
	Audience string // optional; Cognito access tokens carry no aud
	CacheTTL time.Duration
}

// TokenValidator validates RS256 bearer tokens against the provider JWKS.
type TokenValidator struct {
	jwks     *JWKSClient
	issuer   string
	audience string
}

// NewTokenValidator creates a validator for provider-issued tokens.
func NewTokenValidator(cfg TokenValidatorConfig) *TokenValidator {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 1 * time.Hour
	}
	return &TokenValidator{
		jwks:     NewJWKSClient(cfg.JWKSUrl, ttl),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Prefetch warms the signing key cache.
func (v *TokenValidator) Prefetch(ctx context.Context) error {
	return v.jwks.Prefetch(ctx)
}

// Validate parses and validates a bearer token and returns its claims.
func (v *TokenValidator) Validate(ctx context.Context, tokenString string) (map[string]any, error) {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		kid, ok := t.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in token header")
		}
		return v.jwks.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			telemetry.TokenValidations.WithLabelValues("expired").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		telemetry.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		telemetry.TokenValidations.WithLabelValues("invalid").Inc()
		return nil, ErrTokenInvalid
	}

	telemetry.TokenValidations.WithLabelValues(telemetry.OutcomeSuccess).Inc()
	return claims, nil
}
