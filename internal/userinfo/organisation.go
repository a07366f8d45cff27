package userinfo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken is returned when an access level or classification token
// matches none of the known values.
var ErrUnknownToken = errors.New("unknown token")

// AccessLevel is the granularity of an organisation-scoped grant.
type AccessLevel string

const (
	AccessLevelOrganisation AccessLevel = "ORGANISATION"
	AccessLevelGroup        AccessLevel = "GROUP"
	AccessLevelIndividual   AccessLevel = "INDIVIDUAL"
)

// ParseAccessLevel matches s case-insensitively against the known levels.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch lvl := AccessLevel(strings.ToUpper(s)); lvl {
	case AccessLevelOrganisation, AccessLevelGroup, AccessLevelIndividual:
		return lvl, nil
	default:
		return "", fmt.Errorf("%w: access level %q", ErrUnknownToken, s)
	}
}

// SecurityClassification is the sensitivity tier of an organisation-scoped
// grant. Classifications are ordered: PUBLIC < PRIVATE < RESTRICTED.
type SecurityClassification string

const (
	ClassificationPublic     SecurityClassification = "PUBLIC"
	ClassificationPrivate    SecurityClassification = "PRIVATE"
	ClassificationRestricted SecurityClassification = "RESTRICTED"
)

var classificationRank = map[SecurityClassification]int{
	ClassificationPublic:     1,
	ClassificationPrivate:    2,
	ClassificationRestricted: 3,
}

// ParseSecurityClassification matches s case-insensitively against the known
// classifications.
func ParseSecurityClassification(s string) (SecurityClassification, error) {
	c := SecurityClassification(strings.ToUpper(s))
	if _, ok := classificationRank[c]; !ok {
		return "", fmt.Errorf("%w: security classification %q", ErrUnknownToken, s)
	}
	return c, nil
}

// Covers reports whether a grant at classification c gives access to data
// classified as other. Unknown classifications cover nothing.
func (c SecurityClassification) Covers(other SecurityClassification) bool {
	rank, ok := classificationRank[c]
	if !ok {
		return false
	}
	otherRank, ok := classificationRank[other]
	if !ok {
		return false
	}
	return rank >= otherRank
}

// OrganisationProfile describes a user's access to a single organisation.
// Group is only set when AccessLevel is GROUP.
type OrganisationProfile struct {
	AccessLevel            AccessLevel            `json:"access_level"`
	SecurityClassification SecurityClassification `json:"security_classification"`
	Group                  string                 `json:"group,omitempty"`
}

// GroupName returns the group qualifier and whether one is present.
func (p OrganisationProfile) GroupName() (string, bool) {
	if p.AccessLevel != AccessLevelGroup || p.Group == "" {
		return "", false
	}
	return p.Group, true
}
