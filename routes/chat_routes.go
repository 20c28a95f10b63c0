package routes

import (
	"pulse_server/controllers"
	"pulse_server/services"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes registers message, receipt and typing routes
func RegisterChatRoutes(r *mux.Router, messages *services.MessageService, receipts *services.ReadReceiptService, typing *services.TypingService, users *services.UserProfileService) {
	controller := controllers.NewChatController(messages, receipts, typing, users)

	chatRouter := r.PathPrefix("/api/chat").Subrouter()

	// ✅ Send a message to a conversation
	chatRouter.HandleFunc("/message", controller.SendMessage).Methods("POST")

	// ✅ Fetch messages in chronological order
	chatRouter.HandleFunc("/messages", controller.GetMessages).Methods("GET")

	// ✅ Mark messages as read (idempotent)
	chatRouter.HandleFunc("/messages/mark-as-read", controller.MarkMessagesAsRead).Methods("POST")

	// ✅ Soft delete a message (sender only)
	chatRouter.HandleFunc("/message", controller.DeleteMessage).Methods("DELETE")

	// ✅ Update the caller's typing state
	chatRouter.HandleFunc("/typing", controller.SetTyping).Methods("POST")

	// ✅ List other participants typing right now
	chatRouter.HandleFunc("/typing", controller.GetTypingUsers).Methods("GET")
}
