package main

import (
	"context"
	"testing"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/claims"
	"github.com/quickcase/quickcase-authn/internal/cognito"
	"github.com/quickcase/quickcase-authn/internal/platform/config"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExtractor(t *testing.T) {
	t.Run("quickcase defaults", func(t *testing.T) {
		_, names := buildExtractor(config.OIDCConfig{Provider: "quickcase"})
		assert.Equal(t, claims.DefaultNames, names)
	})

	t.Run("cognito defaults", func(t *testing.T) {
		_, names := buildExtractor(config.OIDCConfig{Provider: "cognito"})
		assert.Equal(t, cognito.ClaimNames, names)
	})

	t.Run("overrides applied", func(t *testing.T) {
		oidc := config.OIDCConfig{Provider: "cognito"}
		oidc.Claims.Names.Roles = "cognito:groups"

		_, names := buildExtractor(oidc)
		assert.Equal(t, "cognito:groups", names.Roles())
		assert.Equal(t, cognito.ClaimNames.Organisations(), names.Organisations())
	})
}

func TestDevClaims_FlowThroughExtractor(t *testing.T) {
	for _, provider := range []string{"quickcase", "cognito"} {
		t.Run(provider, func(t *testing.T) {
			extractor, names := buildExtractor(config.OIDCConfig{Provider: provider})

			info, err := extractor.Extract(devClaims(names, config.DevUserConfig{
				Subject:       "dev-user",
				Email:         "dev@quickcase.app",
				Roles:         "quickcase-admin",
				Organisations: `{"dev-org":{"access":"organisation","classification":"restricted"}}`,
			}))
			require.NoError(t, err)

			assert.Equal(t, "dev-user", info.ID())
			assert.Equal(t, "dev@quickcase.app", info.Username())
			assert.True(t, info.HasAuthority("quickcase-admin"))
			profile, ok := info.OrganisationProfile("dev-org")
			require.True(t, ok)
			assert.Equal(t, userinfo.ClassificationRestricted, profile.SecurityClassification)
		})
	}
}

func TestBuildEvaluator(t *testing.T) {
	engine, err := buildEvaluator(context.Background(), config.RBACConfig{
		Roles: map[string][]string{"auditor": {"audit:read"}},
	})
	require.NoError(t, err)

	principal := auth.NewClientAuthentication("token", "svc", []string{"auditor"})
	d, err := engine.Authorize(context.Background(), principal, "audit:read")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}
