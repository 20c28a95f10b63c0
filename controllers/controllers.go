package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"pulse_server/apperrors"
	"pulse_server/auth"
	"pulse_server/models"
	"pulse_server/services"
)

// respondJSON writes a JSON payload with the given status
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps a service error onto the HTTP surface
func respondError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Printf("❌ Internal error: %v", err)
	}
	respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(apperrors.CodeOf(err)),
	})
}

// decodeBody decodes a JSON request body, mapping failures to the
// InvalidArgument kind
func decodeBody(r *http.Request, into interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return apperrors.InvalidArg("invalid request body")
	}
	return nil
}

// resolveCaller runs the identity resolver on the verified principal the
// auth middleware placed in the request context. Every operation starts
// here and aborts identically on failure.
func resolveCaller(r *http.Request, users *services.UserProfileService) (*models.UserProfile, error) {
	return users.ResolveByExternalID(r.Context(), auth.ExternalIDFromContext(r.Context()))
}
