// Package claims turns a validated OIDC claims mapping into a
// userinfo.UserInfo. Claim keys are configurable through Names.
package claims

// Default QuickCase claim keys.
const (
	DefaultSub                 = "sub"
	DefaultName                = "name"
	DefaultEmail               = "email"
	DefaultRoles               = "app.quickcase.claims/roles"
	DefaultOrganisations       = "app.quickcase.claims/organisations"
	DefaultDefaultJurisdiction = "app.quickcase.claims/default_jurisdiction"
	DefaultDefaultCaseType     = "app.quickcase.claims/default_case_type"
	DefaultDefaultState        = "app.quickcase.claims/default_state"
)

// Names holds the claim key for each field read during extraction.
// A Names value used for overrides may leave fields empty.
type Names struct {
	SubClaim                 string
	NameClaim                string
	EmailClaim               string
	RolesClaim               string
	OrganisationsClaim       string
	DefaultJurisdictionClaim string
	DefaultCaseTypeClaim     string
	DefaultStateClaim        string
}

// DefaultNames are the QuickCase claim keys.
var DefaultNames = Names{
	SubClaim:                 DefaultSub,
	NameClaim:                DefaultName,
	EmailClaim:               DefaultEmail,
	RolesClaim:               DefaultRoles,
	OrganisationsClaim:       DefaultOrganisations,
	DefaultJurisdictionClaim: DefaultDefaultJurisdiction,
	DefaultCaseTypeClaim:     DefaultDefaultCaseType,
	DefaultStateClaim:        DefaultDefaultState,
}

// NewNames resolves overrides against the QuickCase defaults.
func NewNames(overrides Names) Names {
	return Resolve(overrides, DefaultNames)
}

// Resolve returns, field by field, the override when non-empty and the
// default otherwise.
func Resolve(overrides, defaults Names) Names {
	return Names{
		SubClaim:                 pick(overrides.SubClaim, defaults.SubClaim),
		NameClaim:                pick(overrides.NameClaim, defaults.NameClaim),
		EmailClaim:               pick(overrides.EmailClaim, defaults.EmailClaim),
		RolesClaim:               pick(overrides.RolesClaim, defaults.RolesClaim),
		OrganisationsClaim:       pick(overrides.OrganisationsClaim, defaults.OrganisationsClaim),
		DefaultJurisdictionClaim: pick(overrides.DefaultJurisdictionClaim, defaults.DefaultJurisdictionClaim),
		DefaultCaseTypeClaim:     pick(overrides.DefaultCaseTypeClaim, defaults.DefaultCaseTypeClaim),
		DefaultStateClaim:        pick(overrides.DefaultStateClaim, defaults.DefaultStateClaim),
	}
}

func pick(override, def string) string {
	if override != "" {
		return override
	}
	return def
}

func (n Names) Sub() string                 { return n.SubClaim }
func (n Names) Name() string                { return n.NameClaim }
func (n Names) Email() string               { return n.EmailClaim }
func (n Names) Roles() string               { return n.RolesClaim }
func (n Names) Organisations() string       { return n.OrganisationsClaim }
func (n Names) DefaultJurisdiction() string { return n.DefaultJurisdictionClaim }
func (n Names) DefaultCaseType() string     { return n.DefaultCaseTypeClaim }
func (n Names) DefaultState() string        { return n.DefaultStateClaim }
