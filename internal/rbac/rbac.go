// Package rbac authorizes authenticated principals: role-based permissions
// over granted authorities and organisation clearance over the user's
// organisation profiles.
package rbac

import (
	"context"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

// Decision represents the result of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// PolicyEngine defines the authorization interface.
type PolicyEngine interface {
	// Authorize checks whether the principal holds permission.
	Authorize(ctx context.Context, principal *auth.Authentication, permission string) (*Decision, error)
	// AuthorizeOrganisation checks whether the principal may access data
	// of organisation classified at classification.
	AuthorizeOrganisation(ctx context.Context, principal *auth.Authentication, organisation string, classification userinfo.SecurityClassification) (*Decision, error)
}
