package rbac_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/rbac"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userPrincipal(id string, roles []string, opts ...userinfo.Option) *auth.Authentication {
	opts = append(opts, userinfo.WithAuthorities(roles...))
	info := userinfo.New(id, opts...)
	return auth.NewUserAuthentication("token", id, info.Name(), info.Authorities(), info)
}

func TestEvaluator_PermissionGranted(t *testing.T) {
	eval := rbac.NewEvaluator()

	eval.RegisterRole("caseworker", []string{
		"cases:read",
		"cases:write",
	})

	decision, err := eval.Authorize(context.Background(), userPrincipal("user-123", []string{"caseworker"}), "cases:read")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluator_PermissionDenied(t *testing.T) {
	eval := rbac.NewEvaluator()

	eval.RegisterRole("caseworker", []string{
		"cases:read",
		"cases:write",
	})

	decision, err := eval.Authorize(context.Background(), userPrincipal("user-123", []string{"caseworker"}), "audit:read")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.NotEmpty(t, decision.Reason)
}

func TestEvaluator_WildcardHasAllPermissions(t *testing.T) {
	eval := rbac.NewEvaluator()
	eval.RegisterRole("quickcase-admin", []string{"*"})

	decision, err := eval.Authorize(context.Background(), userPrincipal("user-123", []string{"quickcase-admin"}), "anything:here")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluator_MultipleRoles(t *testing.T) {
	eval := rbac.NewEvaluator()
	eval.RegisterRole("caseworker", []string{"cases:read"})
	eval.RegisterRole("auditor", []string{"audit:read"})

	principal := userPrincipal("user-123", []string{"caseworker", "auditor"})

	d1, err := eval.Authorize(context.Background(), principal, "cases:read")
	require.NoError(t, err)
	assert.True(t, d1.Allowed)

	d2, err := eval.Authorize(context.Background(), principal, "audit:read")
	require.NoError(t, err)
	assert.True(t, d2.Allowed)
}

func TestEvaluator_NoRoles(t *testing.T) {
	eval := rbac.NewEvaluator()
	eval.RegisterRole("caseworker", []string{"cases:read"})

	decision, err := eval.Authorize(context.Background(), userPrincipal("user-123", nil), "cases:read")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestEvaluator_ClientScopesActAsRoles(t *testing.T) {
	eval := rbac.NewEvaluator()
	eval.RegisterRole("quickcase/cases.read", []string{"cases:read"})

	client := auth.NewClientAuthentication("token", "svc-client", []string{"quickcase/cases.read"})

	decision, err := eval.Authorize(context.Background(), client, "cases:read")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestEvaluator_NilPrincipal(t *testing.T) {
	eval := rbac.NewEvaluator()

	decision, err := eval.Authorize(context.Background(), nil, "cases:read")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestEvaluator_AuthorizeOrganisation(t *testing.T) {
	principal := userPrincipal("user-123", nil,
		userinfo.WithOrganisationProfile("org-1", userinfo.OrganisationProfile{
			AccessLevel:            userinfo.AccessLevelOrganisation,
			SecurityClassification: userinfo.ClassificationPrivate,
		}),
	)
	eval := rbac.NewEvaluator()

	tests := []struct {
		name           string
		organisation   string
		classification userinfo.SecurityClassification
		allowed        bool
	}{
		{"lower classification", "org-1", userinfo.ClassificationPublic, true},
		{"same classification", "org-1", userinfo.ClassificationPrivate, true},
		{"higher classification", "org-1", userinfo.ClassificationRestricted, false},
		{"unknown organisation", "org-2", userinfo.ClassificationPublic, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := eval.AuthorizeOrganisation(context.Background(), principal, tt.organisation, tt.classification)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestEvaluator_AuthorizeOrganisation_ClientDenied(t *testing.T) {
	eval := rbac.NewEvaluator()
	client := auth.NewClientAuthentication("token", "svc-client", []string{"*"})

	d, err := eval.AuthorizeOrganisation(context.Background(), client, "org-1", userinfo.ClassificationPublic)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

type mockRoleLoader struct {
	roles []rbac.RoleDef
	err   error
}

func (m *mockRoleLoader) LoadRoles(ctx context.Context) ([]rbac.RoleDef, error) {
	return m.roles, m.err
}

func TestEvaluator_ReloadRoles(t *testing.T) {
	loader := &mockRoleLoader{
		roles: []rbac.RoleDef{
			{Name: "editor", Permissions: []string{"cases:read", "cases:write"}},
			{Name: "viewer", Permissions: []string{"cases:read"}},
		},
	}
	eval := rbac.NewEvaluator(rbac.WithRoleLoader(loader))

	err := eval.ReloadRoles(context.Background())
	require.NoError(t, err)

	d, err := eval.Authorize(context.Background(), userPrincipal("u1", []string{"editor"}), "cases:write")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// viewer should not have cases:write
	d2, err := eval.Authorize(context.Background(), userPrincipal("u2", []string{"viewer"}), "cases:write")
	require.NoError(t, err)
	assert.False(t, d2.Allowed)
}

func TestEvaluator_ReloadRoles_ReplacesExisting(t *testing.T) {
	loader := &mockRoleLoader{
		roles: []rbac.RoleDef{
			{Name: "editor", Permissions: []string{"cases:read"}},
		},
	}
	eval := rbac.NewEvaluator(rbac.WithRoleLoader(loader))
	require.NoError(t, eval.ReloadRoles(context.Background()))

	loader.roles = []rbac.RoleDef{
		{Name: "editor", Permissions: []string{"cases:read", "cases:write"}},
	}
	require.NoError(t, eval.ReloadRoles(context.Background()))

	d, err := eval.Authorize(context.Background(), userPrincipal("u1", []string{"editor"}), "cases:write")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestEvaluator_ReloadRoles_ErrorPreservesExisting(t *testing.T) {
	loader := &mockRoleLoader{
		roles: []rbac.RoleDef{
			{Name: "editor", Permissions: []string{"cases:read"}},
		},
	}
	eval := rbac.NewEvaluator(rbac.WithRoleLoader(loader))
	require.NoError(t, eval.ReloadRoles(context.Background()))

	loader.err = fmt.Errorf("config unreadable")
	err := eval.ReloadRoles(context.Background())
	require.Error(t, err)

	// Old permissions should still work
	d, err := eval.Authorize(context.Background(), userPrincipal("u1", []string{"editor"}), "cases:read")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestEvaluator_ReloadRoles_NoLoader(t *testing.T) {
	eval := rbac.NewEvaluator()
	require.Error(t, eval.ReloadRoles(context.Background()))
}

func TestStaticRoles(t *testing.T) {
	eval := rbac.NewEvaluator(rbac.WithRoleLoader(rbac.StaticRoles{
		"auditor": {"audit:read"},
	}))
	require.NoError(t, eval.ReloadRoles(context.Background()))

	d, err := eval.Authorize(context.Background(), userPrincipal("u1", []string{"auditor"}), "audit:read")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
