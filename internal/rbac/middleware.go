package rbac

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

// ActionDenied is the audit action recorded for refused authorizations.
const ActionDenied = "authz.denied"

// AuditLogger is the audit interface for RBAC denial logging.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// AuditEvent captures an auditable action.
type AuditEvent struct {
	Action     string
	Principal  string
	ClientOnly bool
	Metadata   map[string]any
	Source     string
}

// MiddlewareOption configures RBAC middleware behavior.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	audit AuditLogger
}

// WithAuditLogger attaches an audit logger to log RBAC denials.
func WithAuditLogger(logger AuditLogger) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.audit = logger
	}
}

// RequirePermission returns middleware that checks if the authenticated
// principal has the specified permission.
func RequirePermission(engine PolicyEngine, permission string, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	mc := newMiddlewareConfig(opts)

	return guard(mc, func(r *http.Request, principal *auth.Authentication) (*Decision, map[string]any, error) {
		decision, err := engine.Authorize(r.Context(), principal, permission)
		return decision, map[string]any{"permission": permission}, err
	})
}

// RequireOrganisation returns middleware that checks the authenticated
// user may access the organisation named by the pathParam route wildcard at
// the given classification.
func RequireOrganisation(engine PolicyEngine, pathParam string, classification userinfo.SecurityClassification, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	mc := newMiddlewareConfig(opts)

	return guard(mc, func(r *http.Request, principal *auth.Authentication) (*Decision, map[string]any, error) {
		org := r.PathValue(pathParam)
		decision, err := engine.AuthorizeOrganisation(r.Context(), principal, org, classification)
		return decision, map[string]any{
			"organisation":   org,
			"classification": string(classification),
		}, err
	})
}

func newMiddlewareConfig(opts []MiddlewareOption) middlewareConfig {
	var mc middlewareConfig
	for _, opt := range opts {
		opt(&mc)
	}
	return mc
}

type check func(r *http.Request, principal *auth.Authentication) (*Decision, map[string]any, error)

func guard(mc middlewareConfig, decide check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.FromContext(r.Context())
			if principal == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
				return
			}

			decision, metadata, err := decide(r, principal)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "authorization check failed",
				})
				return
			}

			if !decision.Allowed {
				if mc.audit != nil {
					metadata["reason"] = decision.Reason
					mc.audit.Log(r.Context(), AuditEvent{
						Action:     ActionDenied,
						Principal:  principal.Principal(),
						ClientOnly: principal.IsClientOnly(),
						Metadata:   metadata,
						Source:     "api",
					})
				}
				writeJSON(w, http.StatusForbidden, map[string]string{
					"error":  "forbidden",
					"reason": decision.Reason,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
