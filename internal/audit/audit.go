// Package audit records authentication and authorization outcomes to
// Postgres and serves them back for review.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event represents a single auditable authentication or authorization
// outcome.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Action     string         `json:"action"`    // e.g. "authn.accepted", "authn.rejected", "authz.denied"
	Principal  string         `json:"principal"` // subject or client id; empty when the token was rejected
	ClientOnly bool           `json:"client_only"`
	Reason     string         `json:"reason,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Source     string         `json:"source"` // "api", "system"
	CreatedAt  time.Time      `json:"created_at"`
}

const (
	ActionAuthnAccepted = "authn.accepted"
	ActionAuthnRejected = "authn.rejected"
	ActionAuthzDenied   = "authz.denied"
)

const (
	SourceAPI    = "api"
	SourceSystem = "system"
)

const (
	MetadataPermission     = "permission"
	MetadataOrganisation   = "organisation"
	MetadataClassification = "classification"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }
