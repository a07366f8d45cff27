package rbac

import (
	"context"
	"fmt"
	"sync"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/platform/telemetry"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

// RoleDef is a role name with its permission strings, used by RoleLoader.
type RoleDef struct {
	Name        string
	Permissions []string
}

// RoleLoader loads role definitions from a backing source.
type RoleLoader interface {
	LoadRoles(ctx context.Context) ([]RoleDef, error)
}

// StaticRoles is a RoleLoader over a fixed role → permissions mapping,
// typically read from configuration.
type StaticRoles map[string][]string

// LoadRoles implements RoleLoader.
func (s StaticRoles) LoadRoles(context.Context) ([]RoleDef, error) {
	defs := make([]RoleDef, 0, len(s))
	for name, perms := range s {
		defs = append(defs, RoleDef{Name: name, Permissions: perms})
	}
	return defs, nil
}

// EvaluatorOption configures the Evaluator.
type EvaluatorOption func(*Evaluator)

// WithRoleLoader sets the RoleLoader used by ReloadRoles.
func WithRoleLoader(loader RoleLoader) EvaluatorOption {
	return func(e *Evaluator) {
		e.loader = loader
	}
}

// Evaluator is the in-memory policy evaluation engine.
type Evaluator struct {
	loader RoleLoader
	roles  map[string][]string // roleName → permissions
	mu     sync.RWMutex
}

func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		roles: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReloadRoles loads roles from the RoleLoader and replaces the in-memory map.
// If loading fails, the existing map is preserved.
func (e *Evaluator) ReloadRoles(ctx context.Context) error {
	if e.loader == nil {
		return fmt.Errorf("no role loader configured")
	}

	defs, err := e.loader.LoadRoles(ctx)
	if err != nil {
		return fmt.Errorf("loading roles: %w", err)
	}

	newRoles := make(map[string][]string, len(defs))
	for _, d := range defs {
		newRoles[d.Name] = d.Permissions
	}

	e.mu.Lock()
	e.roles = newRoles
	e.mu.Unlock()

	return nil
}

// RegisterRole adds a role with its permissions.
func (e *Evaluator) RegisterRole(name string, permissions []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.roles[name] = permissions
}

// Authorize checks whether any authority granted to the principal maps to
// permission. Authorities with no registered role grant nothing.
func (e *Evaluator) Authorize(_ context.Context, principal *auth.Authentication, permission string) (*Decision, error) {
	if principal == nil {
		return deny("no principal"), nil
	}

	if e.checkRolePermissions(principal.Authorities(), permission) {
		return allow(), nil
	}
	return deny(fmt.Sprintf("no permission for %s", permission)), nil
}

// AuthorizeOrganisation requires a user principal holding a profile for
// organisation whose classification covers classification. Client-only
// principals have no organisation profiles and are always denied.
func (e *Evaluator) AuthorizeOrganisation(_ context.Context, principal *auth.Authentication, organisation string, classification userinfo.SecurityClassification) (*Decision, error) {
	if principal == nil {
		return deny("no principal"), nil
	}

	info, ok := principal.UserInfo()
	if !ok {
		return deny("client credentials carry no organisation access"), nil
	}

	profile, ok := info.OrganisationProfile(organisation)
	if !ok {
		return deny(fmt.Sprintf("no access to organisation %s", organisation)), nil
	}
	if !profile.SecurityClassification.Covers(classification) {
		return deny(fmt.Sprintf("classification %s does not cover %s", profile.SecurityClassification, classification)), nil
	}
	return allow(), nil
}

func (e *Evaluator) checkRolePermissions(roles []string, permission string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, role := range roles {
		perms, ok := e.roles[role]
		if !ok {
			continue
		}
		for _, perm := range perms {
			if perm == "*" || perm == permission {
				return true
			}
		}
	}
	return false
}

func allow() *Decision {
	telemetry.AuthzDecisions.WithLabelValues("allow").Inc()
	return &Decision{Allowed: true}
}

func deny(reason string) *Decision {
	telemetry.AuthzDecisions.WithLabelValues("deny").Inc()
	return &Decision{Allowed: false, Reason: reason}
}
