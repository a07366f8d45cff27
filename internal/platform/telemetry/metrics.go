package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// TokenValidations counts bearer token validations.
	// Labels:
	//   - outcome: "success", "expired", "invalid"
	TokenValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcase_authn_token_validations_total",
			Help: "Total number of bearer token validations",
		},
		[]string{"outcome"},
	)

	// Extractions counts claims-to-identity extractions.
	// Labels:
	//   - provider: "quickcase", "cognito", "dev"
	//   - outcome: "success", "missing_subject", "malformed_organisations",
	//     "unrecognized_token", "client"
	Extractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcase_authn_extractions_total",
			Help: "Total number of user identity extractions from token claims",
		},
		[]string{"provider", "outcome"},
	)

	// JWKSFetches counts JWKS endpoint fetches.
	JWKSFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcase_authn_jwks_fetches_total",
			Help: "Total number of JWKS fetches",
		},
		[]string{"outcome"},
	)

	// AuthzDecisions counts authorization decisions.
	// Labels:
	//   - decision: "allow", "deny"
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcase_authz_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"decision"},
	)

	// AuditEvents counts audit events by fate.
	// Labels:
	//   - outcome: "written", "dropped", "failure"
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcase_authn_audit_events_total",
			Help: "Total number of audit events written or lost",
		},
		[]string{"outcome"},
	)
)
