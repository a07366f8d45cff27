package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/quickcase/quickcase-authn/internal/claims"
	"github.com/quickcase/quickcase-authn/internal/platform/telemetry"
)

// DevToken is the bearer token accepted in dev mode.
const DevToken = "dev"

// Validator validates a bearer token and returns its claims.
type Validator interface {
	Validate(ctx context.Context, token string) (map[string]any, error)
}

// AuditLogger receives authentication outcomes.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// AuditEvent describes an accepted or rejected authentication.
type AuditEvent struct {
	Action     string // "authn.accepted" or "authn.rejected"
	Principal  string
	ClientOnly bool
	Reason     string
}

const (
	ActionAccepted = "authn.accepted"
	ActionRejected = "authn.rejected"
)

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithProvider sets the provider name used in metrics.
func WithProvider(name string) AuthenticatorOption {
	return func(a *Authenticator) {
		a.provider = name
	}
}

// WithAuditLogger records every authentication outcome.
func WithAuditLogger(l AuditLogger) AuthenticatorOption {
	return func(a *Authenticator) {
		a.audit = l
	}
}

// WithDevClaims makes the Authenticator accept DevToken, authenticating it
// as if a token carrying devClaims had been validated.
func WithDevClaims(devClaims map[string]any) AuthenticatorOption {
	return func(a *Authenticator) {
		a.devClaims = devClaims
	}
}

// Authenticator turns a bearer token into an Authentication.
type Authenticator struct {
	validator Validator
	extractor Extractor
	provider  string
	audit     AuditLogger
	devClaims map[string]any
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(validator Validator, extractor Extractor, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		validator: validator,
		extractor: extractor,
		provider:  "quickcase",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate validates token and builds the request principal. Tokens
// issued to a client for itself yield a client-only authentication.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Authentication, error) {
	provider := a.provider

	var tokenClaims map[string]any
	if a.devClaims != nil && token == DevToken {
		tokenClaims = a.devClaims
		provider = "dev"
	} else {
		c, err := a.validator.Validate(ctx, token)
		if err != nil {
			return nil, err
		}
		tokenClaims = c
	}

	if clientID, ok := clientCredentials(tokenClaims); ok {
		telemetry.Extractions.WithLabelValues(provider, "client").Inc()
		return NewClientAuthentication(token, clientID, scopes(tokenClaims)), nil
	}

	info, err := a.extractor.Extract(tokenClaims)
	if err != nil {
		telemetry.Extractions.WithLabelValues(provider, extractionOutcome(err)).Inc()
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	telemetry.Extractions.WithLabelValues(provider, telemetry.OutcomeSuccess).Inc()

	return NewUserAuthentication(token, info.ID(), info.Name(), info.Authorities(), info), nil
}

// Middleware returns HTTP middleware that authenticates bearer tokens and
// stores the resulting Authentication in the request context.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				a.reject(r.Context(), err.Error())
				writeAuthError(w, http.StatusUnauthorized, err.Error())
				return
			}

			authn, err := a.Authenticate(r.Context(), token)
			if err != nil {
				msg := rejectionMessage(err)
				slog.Warn("authentication rejected", "reason", msg, "error", err)
				a.reject(r.Context(), msg)
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			if a.audit != nil {
				a.audit.Log(r.Context(), AuditEvent{
					Action:     ActionAccepted,
					Principal:  authn.Principal(),
					ClientOnly: authn.IsClientOnly(),
				})
			}

			next.ServeHTTP(w, r.WithContext(WithAuthentication(r.Context(), authn)))
		})
	}
}

func (a *Authenticator) reject(ctx context.Context, reason string) {
	if a.audit == nil {
		return
	}
	a.audit.Log(ctx, AuditEvent{Action: ActionRejected, Reason: reason})
}

// clientCredentials reports whether the token was issued to a client for
// itself, i.e. its subject is the client id.
func clientCredentials(c map[string]any) (string, bool) {
	sub, _ := c["sub"].(string)
	for _, key := range []string{"client_id", "azp"} {
		id, _ := c[key].(string)
		if id != "" && id == sub {
			return id, true
		}
	}
	return "", false
}

func scopes(c map[string]any) []string {
	s, _ := c["scope"].(string)
	return strings.Fields(s)
}

func extractionOutcome(err error) string {
	switch {
	case errors.Is(err, claims.ErrMissingSubject):
		return "missing_subject"
	case errors.Is(err, claims.ErrMalformedOrganisations):
		return "malformed_organisations"
	case errors.Is(err, claims.ErrUnrecognizedToken):
		return "unrecognized_token"
	default:
		return telemetry.OutcomeFailure
	}
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "token expired"
	case errors.Is(err, ErrUnauthorized):
		return "invalid identity claims"
	default:
		return "invalid token"
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return parts[1], nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="quickcase"`)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
