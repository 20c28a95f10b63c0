package routes

import (
	"pulse_server/controllers"
	"pulse_server/services"

	"github.com/gorilla/mux"
)

// RegisterUserRoutes registers profile sync and search routes
func RegisterUserRoutes(r *mux.Router, users *services.UserProfileService) {
	controller := controllers.NewUserController(users)

	userRouter := r.PathPrefix("/api/users").Subrouter()

	// ✅ Create or fetch the caller's profile on sign-in
	userRouter.HandleFunc("/sync", controller.SyncUser).Methods("POST")

	// ✅ Search users by username or full name
	userRouter.HandleFunc("/search", controller.SearchUsers).Methods("GET")
}
