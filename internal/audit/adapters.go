package audit

import (
	"context"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/rbac"
)

// AuthnRecorder records authentication outcomes to a Logger.
type AuthnRecorder struct {
	Logger Logger
}

// Log implements auth.AuditLogger.
func (r AuthnRecorder) Log(ctx context.Context, e auth.AuditEvent) {
	r.Logger.Log(ctx, Event{
		Action:     e.Action,
		Principal:  e.Principal,
		ClientOnly: e.ClientOnly,
		Reason:     e.Reason,
		Source:     SourceAPI,
	})
}

// AuthzRecorder records authorization denials to a Logger.
type AuthzRecorder struct {
	Logger Logger
}

// Log implements rbac.AuditLogger.
func (r AuthzRecorder) Log(ctx context.Context, e rbac.AuditEvent) {
	reason, _ := e.Metadata["reason"].(string)
	source := e.Source
	if source == "" {
		source = SourceAPI
	}
	r.Logger.Log(ctx, Event{
		Action:     e.Action,
		Principal:  e.Principal,
		ClientOnly: e.ClientOnly,
		Reason:     reason,
		Metadata:   e.Metadata,
		Source:     source,
	})
}

var (
	_ auth.AuditLogger = AuthnRecorder{}
	_ rbac.AuditLogger = AuthzRecorder{}
)
