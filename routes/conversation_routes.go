package routes

import (
	"pulse_server/controllers"
	"pulse_server/services"

	"github.com/gorilla/mux"
)

// RegisterConversationRoutes registers conversation-related routes
func RegisterConversationRoutes(r *mux.Router, conversations *services.ConversationService, users *services.UserProfileService) {
	controller := controllers.NewConversationController(conversations, users)

	conversationRouter := r.PathPrefix("/api/conversations").Subrouter()

	// ✅ Create or return the direct conversation with another user
	conversationRouter.HandleFunc("", controller.CreateConversation).Methods("POST")

	// ✅ List the caller's conversations, newest activity first
	conversationRouter.HandleFunc("", controller.ListConversations).Methods("GET")
}
