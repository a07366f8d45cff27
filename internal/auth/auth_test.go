package auth_test

import (
	"context"
	"testing"

	"github.com/quickcase/quickcase-authn/internal/auth"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessToken = "access-token-123"
	userID      = "client-123"
	userEmail   = "test@test"
	userName    = "Jean Paul"
)

func userAuthentication() *auth.Authentication {
	info := userinfo.New(userID, userinfo.WithEmail(userEmail))
	return auth.NewUserAuthentication(accessToken, userID, userName, []string{"ROLE-1", "ROLE-2"}, info)
}

func TestUserAuthentication(t *testing.T) {
	a := userAuthentication()

	t.Run("email", func(t *testing.T) {
		email, ok := a.Email()
		assert.True(t, ok)
		assert.Equal(t, userEmail, email)
	})

	t.Run("identifiers", func(t *testing.T) {
		assert.Equal(t, userID, a.ID())
		assert.Equal(t, userID, a.Principal())
		assert.Equal(t, userName, a.Name())
	})

	t.Run("user info", func(t *testing.T) {
		info, ok := a.UserInfo()
		require.True(t, ok)
		assert.Equal(t, userEmail, info.Email())
	})

	t.Run("credentials", func(t *testing.T) {
		assert.Equal(t, accessToken, a.Credentials())
		assert.Equal(t, accessToken, a.AccessToken())
	})

	t.Run("flags", func(t *testing.T) {
		assert.True(t, a.IsAuthenticated())
		assert.False(t, a.IsClientOnly())
	})

	t.Run("authorities", func(t *testing.T) {
		assert.Equal(t, []string{"ROLE-1", "ROLE-2"}, a.Authorities())
		assert.True(t, a.HasAuthority("ROLE-1"))
		assert.False(t, a.HasAuthority("ROLE-3"))
	})
}

func TestClientAuthentication(t *testing.T) {
	a := auth.NewClientAuthentication(accessToken, "svc-client", []string{"cases/read"})

	assert.True(t, a.IsAuthenticated())
	assert.True(t, a.IsClientOnly())
	assert.Equal(t, "svc-client", a.ID())
	assert.Equal(t, "svc-client", a.Name())

	_, ok := a.UserInfo()
	assert.False(t, ok)
	_, ok = a.Email()
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, auth.FromContext(context.Background()))

	a := userAuthentication()
	ctx := auth.WithAuthentication(context.Background(), a)
	assert.Same(t, a, auth.FromContext(ctx))
}
