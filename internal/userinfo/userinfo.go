// Package userinfo holds the identity model built from OIDC claims: the
// authenticated user, the roles granted to them, their per-organisation
// access profiles and their preferences.
package userinfo

import (
	"maps"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
	"github.com/samber/lo"
)

// Preferences are the user's defaults. Empty fields are absent.
type Preferences struct {
	DefaultJurisdiction string `json:"default_jurisdiction,omitempty"`
	DefaultCaseType     string `json:"default_case_type,omitempty"`
	DefaultState        string `json:"default_state,omitempty"`
}

// UserInfo is an authenticated user's identity. It is immutable once built:
// accessors hand out copies.
type UserInfo struct {
	subject     string
	name        string
	email       string
	authorities mapset.Set[string]
	profiles    map[string]OrganisationProfile
	preferences Preferences
}

// Option configures a UserInfo under construction.
type Option func(*UserInfo)

// WithName sets the display name.
func WithName(name string) Option {
	return func(u *UserInfo) {
		u.name = name
	}
}

// WithEmail sets the email address.
func WithEmail(email string) Option {
	return func(u *UserInfo) {
		u.email = email
	}
}

// WithAuthorities adds granted roles. Duplicates collapse.
func WithAuthorities(authorities ...string) Option {
	return func(u *UserInfo) {
		u.authorities.Append(authorities...)
	}
}

// WithOrganisationProfile adds the profile for an organisation, replacing
// any profile already set for the same key.
func WithOrganisationProfile(organisation string, profile OrganisationProfile) Option {
	return func(u *UserInfo) {
		u.profiles[organisation] = profile
	}
}

// WithPreferences sets the user preferences.
func WithPreferences(p Preferences) Option {
	return func(u *UserInfo) {
		u.preferences = p
	}
}

// New builds a UserInfo for subject.
func New(subject string, opts ...Option) *UserInfo {
	u := &UserInfo{
		subject:     subject,
		authorities: mapset.NewThreadUnsafeSet[string](),
		profiles:    make(map[string]OrganisationProfile),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ID returns the subject identifier.
func (u *UserInfo) ID() string {
	return u.subject
}

// Subject returns the subject identifier.
func (u *UserInfo) Subject() string {
	return u.subject
}

// Name returns the display name, falling back to the subject.
func (u *UserInfo) Name() string {
	if u.name == "" {
		return u.subject
	}
	return u.name
}

// Email returns the email address, or "" if none was asserted.
func (u *UserInfo) Email() string {
	return u.email
}

// Username is the email when present, the subject otherwise.
func (u *UserInfo) Username() string {
	if u.email == "" {
		return u.subject
	}
	return u.email
}

// Authorities returns the granted roles in sorted order.
func (u *UserInfo) Authorities() []string {
	roles := u.authorities.ToSlice()
	slices.Sort(roles)
	return roles
}

// AuthoritySet returns a copy of the granted roles as a set.
func (u *UserInfo) AuthoritySet() mapset.Set[string] {
	return mapset.NewSet(u.authorities.ToSlice()...)
}

// HasAuthority reports whether role was granted.
func (u *UserInfo) HasAuthority(role string) bool {
	return u.authorities.Contains(role)
}

// OrganisationProfiles returns a copy of the profiles keyed by organisation.
// The map is never nil.
func (u *UserInfo) OrganisationProfiles() map[string]OrganisationProfile {
	return maps.Clone(u.profiles)
}

// OrganisationProfile returns the profile for organisation, if any.
func (u *UserInfo) OrganisationProfile(organisation string) (OrganisationProfile, bool) {
	p, ok := u.profiles[organisation]
	return p, ok
}

// Jurisdictions is the set of organisation keys. Retained for consumers
// that predate organisation profiles.
func (u *UserInfo) Jurisdictions() mapset.Set[string] {
	return mapset.NewSet(lo.Keys(u.profiles)...)
}

// Preferences returns the user preferences.
func (u *UserInfo) Preferences() Preferences {
	return u.preferences
}

type userInfoJSON struct {
	ID            string                         `json:"id"`
	Username      string                         `json:"username"`
	Name          string                         `json:"name"`
	Email         string                         `json:"email,omitempty"`
	Authorities   []string                       `json:"authorities"`
	Organisations map[string]OrganisationProfile `json:"organisations"`
	Jurisdictions []string                       `json:"jurisdictions"`
	Preferences   Preferences                    `json:"preferences"`
}

// MarshalJSON encodes the user with sorted collections so that equal users
// encode to equal bytes.
func (u *UserInfo) MarshalJSON() ([]byte, error) {
	jurisdictions := lo.Keys(u.profiles)
	slices.Sort(jurisdictions)

	return json.Marshal(userInfoJSON{
		ID:            u.subject,
		Username:      u.Username(),
		Name:          u.Name(),
		Email:         u.email,
		Authorities:   u.Authorities(),
		Organisations: u.profiles,
		Jurisdictions: jurisdictions,
		Preferences:   u.preferences,
	})
}
