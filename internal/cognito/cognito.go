// Package cognito maps AWS Cognito token claims to user identities.
//
// Cognito only allows custom attributes under the "custom:" prefix, so the
// QuickCase application claims are published under different keys. The
// extraction rules are otherwise the same as for any other provider.
package cognito

import "github.com/quickcase/quickcase-authn/internal/claims"

// Claim keys published by the QuickCase Cognito user pool.
const (
	Sub                     = "sub"
	Name                    = "name"
	Email                   = "email"
	AppRoles                = "custom:app_roles"
	AppOrganisations        = "custom:app_organisations"
	UserDefaultJurisdiction = "custom:user_default_jurisdiction"
	UserDefaultCaseType     = "custom:user_default_case_type"
	UserDefaultState        = "custom:user_default_state"

	// AppJurisdictions is the legacy comma-separated jurisdictions attribute.
	// It is not read: jurisdictions are the organisation keys.
	AppJurisdictions = "custom:app_jurisdictions"
)

// ClaimNames are the Cognito claim keys.
var ClaimNames = claims.Names{
	SubClaim:                 Sub,
	NameClaim:                Name,
	EmailClaim:               Email,
	RolesClaim:               AppRoles,
	OrganisationsClaim:       AppOrganisations,
	DefaultJurisdictionClaim: UserDefaultJurisdiction,
	DefaultCaseTypeClaim:     UserDefaultCaseType,
	DefaultStateClaim:        UserDefaultState,
}

// NewExtractor returns an extractor reading Cognito claim keys, with any
// non-empty override taking precedence.
func NewExtractor(overrides claims.Names) *claims.Extractor {
	return claims.NewExtractor(claims.Resolve(overrides, ClaimNames))
}
