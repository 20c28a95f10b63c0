package controllers

import (
	"net/http"

	"pulse_server/auth"
	"pulse_server/services"
)

// UserController handles profile sync and user search
type UserController struct {
	Users *services.UserProfileService
}

func NewUserController(users *services.UserProfileService) *UserController {
	return &UserController{Users: users}
}

// SyncUser - creates the caller's profile on first sign-in
func (c *UserController) SyncUser(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Username string `json:"username"`
		FullName string `json:"fullName"`
		Image    string `json:"image"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	externalID := auth.ExternalIDFromContext(r.Context())
	profile, err := c.Users.EnsureUser(r.Context(), externalID, request.Username, request.FullName, request.Image)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// SearchUsers - finds users to start a conversation with
func (c *UserController) SearchUsers(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	term := r.URL.Query().Get("term")
	results, err := c.Users.SearchUsers(r.Context(), caller.UserID, term)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
