package auth

import (
	"encoding/json"
	"net/http"

	"github.com/quickcase/quickcase-authn/internal/userinfo"
)

// Handler serves the authenticated principal back to its caller.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

type principalResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	ClientOnly  bool               `json:"client_only"`
	Authorities []string           `json:"authorities"`
	UserInfo    *userinfo.UserInfo `json:"user_info,omitempty"`
}

type organisationResponse struct {
	Organisation string                       `json:"organisation"`
	Profile      userinfo.OrganisationProfile `json:"profile"`
	Covers       *bool                        `json:"covers,omitempty"`
}

// HandleMe returns the request principal.
// GET /api/v1/me
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	a := FromContext(r.Context())
	if a == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	resp := principalResponse{
		ID:          a.ID(),
		Name:        a.Name(),
		ClientOnly:  a.IsClientOnly(),
		Authorities: a.Authorities(),
	}
	if info, ok := a.UserInfo(); ok {
		resp.UserInfo = info
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleOrganisation returns the user's profile for the {org} path
// wildcard. With ?classification=, it also reports whether the profile's
// clearance covers that classification.
// GET /api/v1/me/organisations/{org}
func (h *Handler) HandleOrganisation(w http.ResponseWriter, r *http.Request) {
	a := FromContext(r.Context())
	if a == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	org := r.PathValue("org")
	info, ok := a.UserInfo()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no organisation profiles for client credentials"})
		return
	}
	profile, ok := info.OrganisationProfile(org)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "organisation not found"})
		return
	}

	resp := organisationResponse{Organisation: org, Profile: profile}
	if raw := r.URL.Query().Get("classification"); raw != "" {
		required, err := userinfo.ParseSecurityClassification(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		covers := profile.SecurityClassification.Covers(required)
		resp.Covers = &covers
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
