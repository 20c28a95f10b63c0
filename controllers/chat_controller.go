package controllers

import (
	"net/http"
	"strconv"

	"pulse_server/services"
)

// ChatController handles messages, read receipts and typing presence
type ChatController struct {
	Messages *services.MessageService
	Receipts *services.ReadReceiptService
	Typing   *services.TypingService
	Users    *services.UserProfileService
}

func NewChatController(messages *services.MessageService, receipts *services.ReadReceiptService, typing *services.TypingService, users *services.UserProfileService) *ChatController {
	return &ChatController{Messages: messages, Receipts: receipts, Typing: typing, Users: users}
}

// SendMessage - appends a new message to a conversation
func (c *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request services.SendMessageInput
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	messageID, err := c.Messages.Send(r.Context(), caller.UserID, request)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"messageId": messageID})
}

// GetMessages - fetch messages for a conversation in chronological order
func (c *ChatController) GetMessages(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	conversationID := r.URL.Query().Get("conversationId")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	messages, err := c.Messages.ListMessages(r.Context(), caller.UserID, conversationID, limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkMessagesAsRead - idempotently record receipts for the given messages
func (c *ChatController) MarkMessagesAsRead(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		ConversationID string   `json:"conversationId"`
		MessageIDs     []string `json:"messageIds"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	if err := c.Receipts.MarkRead(r.Context(), caller.UserID, request.ConversationID, request.MessageIDs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// DeleteMessage - sender-only soft delete
func (c *ChatController) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		MessageID string `json:"messageId"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	if err := c.Messages.SoftDelete(r.Context(), caller.UserID, request.MessageID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// SetTyping - upsert the caller's typing flag for a conversation
func (c *ChatController) SetTyping(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		ConversationID string `json:"conversationId"`
		IsTyping       bool   `json:"isTyping"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	if err := c.Typing.SetTyping(r.Context(), caller.UserID, request.ConversationID, request.IsTyping); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// GetTypingUsers - who else is typing in the conversation right now
func (c *ChatController) GetTypingUsers(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	conversationID := r.URL.Query().Get("conversationId")
	typing, err := c.Typing.ListTyping(r.Context(), caller.UserID, conversationID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, typing)
}
