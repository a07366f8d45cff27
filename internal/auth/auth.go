package auth

import (
	"context"
	"errors"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
	ErrUnauthorized = errors.New("unauthorized")
)

// Extractor turns validated token claims into a user identity.
type Extractor interface {
	Extract(claims map[string]any) (*userinfo.UserInfo, error)
}

// Authentication is the principal of an authenticated request. A user
// authentication carries a UserInfo; a client authentication (machine
// credentials, no human identity) does not.
type Authentication struct {
	accessToken string
	id          string
	name        string
	authorities mapset.Set[string]
	userInfo    *userinfo.UserInfo
}

// NewUserAuthentication creates the authentication of a human user.
func NewUserAuthentication(accessToken, id, name string, authorities []string, info *userinfo.UserInfo) *Authentication {
	return &Authentication{
		accessToken: accessToken,
		id:          id,
		name:        name,
		authorities: mapset.NewSet(authorities...),
		userInfo:    info,
	}
}

// NewClientAuthentication creates the authentication of a client acting on
// its own behalf.
func NewClientAuthentication(accessToken, clientID string, authorities []string) *Authentication {
	return NewUserAuthentication(accessToken, clientID, clientID, authorities, nil)
}

// ID returns the user or client identifier.
func (a *Authentication) ID() string { return a.id }

// Name returns the display name.
func (a *Authentication) Name() string { return a.name }

// Principal returns the identifier used as principal.
func (a *Authentication) Principal() string { return a.id }

// Credentials returns the access token.
func (a *Authentication) Credentials() string { return a.accessToken }

// AccessToken returns the bearer token the request was authenticated with.
func (a *Authentication) AccessToken() string { return a.accessToken }

// Email returns the user's email, if one is known.
func (a *Authentication) Email() (string, bool) {
	if a.userInfo == nil || a.userInfo.Email() == "" {
		return "", false
	}
	return a.userInfo.Email(), true
}

// UserInfo returns the user identity; absent for client authentications.
func (a *Authentication) UserInfo() (*userinfo.UserInfo, bool) {
	return a.userInfo, a.userInfo != nil
}

// Authorities returns the granted authorities in sorted order.
func (a *Authentication) Authorities() []string {
	out := a.authorities.ToSlice()
	slices.Sort(out)
	return out
}

// HasAuthority reports whether authority was granted.
func (a *Authentication) HasAuthority(authority string) bool {
	return a.authorities.Contains(authority)
}

// IsAuthenticated is always true: an Authentication is only built from
// validated credentials.
func (a *Authentication) IsAuthenticated() bool { return true }

// IsClientOnly reports whether no user identity is attached.
func (a *Authentication) IsClientOnly() bool { return a.userInfo == nil }

type authenticationContextKey struct{}

// WithAuthentication returns a copy of ctx carrying a.
// Exported so other packages can set the principal in tests.
func WithAuthentication(ctx context.Context, a *Authentication) context.Context {
	return context.WithValue(ctx, authenticationContextKey{}, a)
}

// FromContext retrieves the authentication from the request context.
func FromContext(ctx context.Context) *Authentication {
	a, _ := ctx.Value(authenticationContextKey{}).(*Authentication)
	return a
}
