package claims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

var (
	ErrMissingSubject         = errors.New("missing subject claim")
	ErrMalformedOrganisations = errors.New("malformed organisations claim")
	ErrUnrecognizedToken      = errors.New("unrecognized organisation token")
)

const rolesSeparator = ","

// Extractor builds UserInfo values from claims using a fixed set of claim
// names. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	names Names
}

// NewExtractor creates an Extractor reading the given claim names.
func NewExtractor(names Names) *Extractor {
	return &Extractor{names: names}
}

// Names returns the claim names the extractor reads.
func (e *Extractor) Names() Names {
	return e.names
}

// Extract builds a UserInfo from claims.
func (e *Extractor) Extract(claims map[string]any) (*userinfo.UserInfo, error) {
	return Extract(claims, e.names)
}

// Extract builds a UserInfo from claims, reading each field from the key
// given by names. Only the subject is required. A present organisations
// claim must be well formed: there is no partial result.
func Extract(claims map[string]any, names Names) (*userinfo.UserInfo, error) {
	sub := stringClaim(claims, names.Sub())
	if sub == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingSubject, names.Sub())
	}

	profiles, err := parseOrganisations(claims[names.Organisations()])
	if err != nil {
		return nil, err
	}

	opts := []userinfo.Option{
		userinfo.WithName(stringClaim(claims, names.Name())),
		userinfo.WithEmail(stringClaim(claims, names.Email())),
		userinfo.WithAuthorities(parseRoles(claims[names.Roles()])...),
		userinfo.WithPreferences(userinfo.Preferences{
			DefaultJurisdiction: stringClaim(claims, names.DefaultJurisdiction()),
			DefaultCaseType:     stringClaim(claims, names.DefaultCaseType()),
			DefaultState:        stringClaim(claims, names.DefaultState()),
		}),
	}
	for org, profile := range profiles {
		opts = append(opts, userinfo.WithOrganisationProfile(org, profile))
	}

	return userinfo.New(sub, opts...), nil
}

// stringClaim returns the claim as a string; missing or non-string values
// read as "".
func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// parseRoles splits a comma-separated roles claim. Tokens are kept verbatim;
// empty tokens are dropped. A JSON array of strings is accepted as well.
func parseRoles(v any) []string {
	var roles []string
	switch r := v.(type) {
	case string:
		for _, role := range strings.Split(r, rolesSeparator) {
			if role != "" {
				roles = append(roles, role)
			}
		}
	case []string:
		for _, role := range r {
			if role != "" {
				roles = append(roles, role)
			}
		}
	case []any:
		for _, item := range r {
			if role, ok := item.(string); ok && role != "" {
				roles = append(roles, role)
			}
		}
	}
	return roles
}

type organisationClaim struct {
	Access         *string `json:"access"`
	Classification *string `json:"classification"`
	Group          string  `json:"group"`
}

// parseOrganisations decodes the organisations claim. The claim is normally
// a JSON-encoded string; an already decoded JSON object is accepted too.
func parseOrganisations(v any) (map[string]userinfo.OrganisationProfile, error) {
	var raw []byte
	switch c := v.(type) {
	case nil:
		return map[string]userinfo.OrganisationProfile{}, nil
	case string:
		raw = []byte(c)
	case map[string]any:
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOrganisations, err)
		}
		raw = b
	default:
		return nil, fmt.Errorf("%w: unexpected type %T", ErrMalformedOrganisations, v)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOrganisations, err)
	}

	profiles := make(map[string]userinfo.OrganisationProfile, len(entries))
	for org, entry := range entries {
		profile, err := parseOrganisation(org, entry)
		if err != nil {
			return nil, err
		}
		profiles[org] = profile
	}
	return profiles, nil
}

func parseOrganisation(org string, entry json.RawMessage) (userinfo.OrganisationProfile, error) {
	var c organisationClaim
	if err := json.Unmarshal(entry, &c); err != nil {
		return userinfo.OrganisationProfile{}, fmt.Errorf("%w: organisation %q: %v", ErrMalformedOrganisations, org, err)
	}
	if c.Access == nil {
		return userinfo.OrganisationProfile{}, fmt.Errorf("%w: organisation %q: missing access", ErrMalformedOrganisations, org)
	}
	if c.Classification == nil {
		return userinfo.OrganisationProfile{}, fmt.Errorf("%w: organisation %q: missing classification", ErrMalformedOrganisations, org)
	}

	access, err := userinfo.ParseAccessLevel(*c.Access)
	if err != nil {
		return userinfo.OrganisationProfile{}, fmt.Errorf("%w: organisation %q: %w", ErrUnrecognizedToken, org, err)
	}
	classification, err := userinfo.ParseSecurityClassification(*c.Classification)
	if err != nil {
		return userinfo.OrganisationProfile{}, fmt.Errorf("%w: organisation %q: %w", ErrUnrecognizedToken, org, err)
	}

	profile := userinfo.OrganisationProfile{
		AccessLevel:            access,
		SecurityClassification: classification,
	}
	if access == userinfo.AccessLevelGroup {
		profile.Group = c.Group
	}
	return profile, nil
}
