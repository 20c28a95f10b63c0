package controllers

import (
	"net/http"

	"pulse_server/services"
)

// ConversationController handles conversation creation and listing
type ConversationController struct {
	Conversations *services.ConversationService
	Users         *services.UserProfileService
}

func NewConversationController(conversations *services.ConversationService, users *services.UserProfileService) *ConversationController {
	return &ConversationController{Conversations: conversations, Users: users}
}

// CreateConversation - creates or returns the direct conversation with the
// given participant
func (c *ConversationController) CreateConversation(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		ParticipantID string `json:"participantId"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	conversationID, err := c.Conversations.CreateOrGetDirect(r.Context(), caller.UserID, request.ParticipantID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"conversationId": conversationID})
}

// ListConversations - the caller's conversations, newest activity first
func (c *ConversationController) ListConversations(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	summaries, err := c.Conversations.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
