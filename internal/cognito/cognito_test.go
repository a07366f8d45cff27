package cognito_test

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/quickcase/quickcase-authn/internal/claims"
	"github.com/quickcase/quickcase-authn/internal/cognito"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID    = "eec55037-bac7-46b4-9849-f063e627e4f3"
	userName  = "Test User"
	userEmail = "test@quickcase.app"
)

func cognitoClaims() map[string]any {
	return map[string]any{
		cognito.Sub:                     userID,
		cognito.Name:                    userName,
		cognito.Email:                   userEmail,
		cognito.AppRoles:                "role1,role2",
		cognito.AppJurisdictions:        "jid1,jid2",
		cognito.UserDefaultJurisdiction: "jid1",
		cognito.UserDefaultCaseType:     "ct1",
		cognito.UserDefaultState:        "stateA",
		cognito.AppOrganisations: `{` +
			`"org-1": {"access": "organisation", "classification": "private"},` +
			`"org-2": {"access": "group", "classification": "public", "group": "group-1"}` +
			`}`,
	}
}

func TestExtractor_UserInfo(t *testing.T) {
	u, err := cognito.NewExtractor(claims.Names{}).Extract(cognitoClaims())
	require.NoError(t, err)
	require.NotNil(t, u)

	assert.Equal(t, userID, u.ID())
	assert.Equal(t, userName, u.Name())
	assert.Equal(t, userEmail, u.Email())
	assert.Equal(t, userEmail, u.Username())
	assert.ElementsMatch(t, []string{"role1", "role2"}, u.Authorities())
}

func TestExtractor_JurisdictionsFromOrganisations(t *testing.T) {
	u, err := cognito.NewExtractor(claims.Names{}).Extract(cognitoClaims())
	require.NoError(t, err)

	assert.True(t, mapset.NewSet("org-1", "org-2").Equal(u.Jurisdictions()))
}

func TestExtractor_Preferences(t *testing.T) {
	u, err := cognito.NewExtractor(claims.Names{}).Extract(cognitoClaims())
	require.NoError(t, err)

	prefs := u.Preferences()
	assert.Equal(t, "jid1", prefs.DefaultJurisdiction)
	assert.Equal(t, "ct1", prefs.DefaultCaseType)
	assert.Equal(t, "stateA", prefs.DefaultState)
}

func TestExtractor_OrganisationProfiles(t *testing.T) {
	u, err := cognito.NewExtractor(claims.Names{}).Extract(cognitoClaims())
	require.NoError(t, err)

	profiles := u.OrganisationProfiles()
	require.Len(t, profiles, 2)

	p1 := profiles["org-1"]
	assert.Equal(t, userinfo.AccessLevelOrganisation, p1.AccessLevel)
	assert.Equal(t, userinfo.ClassificationPrivate, p1.SecurityClassification)
	_, ok := p1.GroupName()
	assert.False(t, ok)

	p2 := profiles["org-2"]
	assert.Equal(t, userinfo.AccessLevelGroup, p2.AccessLevel)
	assert.Equal(t, userinfo.ClassificationPublic, p2.SecurityClassification)
	group, ok := p2.GroupName()
	assert.True(t, ok)
	assert.Equal(t, "group-1", group)
}

func TestNewExtractor_Overrides(t *testing.T) {
	e := cognito.NewExtractor(claims.Names{RolesClaim: "cognito:groups"})

	assert.Equal(t, "cognito:groups", e.Names().Roles())
	assert.Equal(t, cognito.AppOrganisations, e.Names().Organisations())

	u, err := e.Extract(map[string]any{
		cognito.Sub:      userID,
		"cognito:groups": []any{"admins"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"admins"}, u.Authorities())
}
