package routes

import (
	"pulse_server/controllers"
	"pulse_server/services"

	"github.com/gorilla/mux"
)

// RegisterStoryRoutes registers story-related routes
func RegisterStoryRoutes(r *mux.Router, stories *services.StoryService, users *services.UserProfileService) {
	controller := controllers.NewStoryController(stories, users)

	storyRouter := r.PathPrefix("/api/stories").Subrouter()

	// ✅ Publish a story (expires after 24 hours)
	storyRouter.HandleFunc("", controller.CreateStory).Methods("POST")

	// ✅ Story feed grouped per owner, own stories first
	storyRouter.HandleFunc("/feed", controller.GetFeed).Methods("GET")

	// ✅ A single user's active stories
	storyRouter.HandleFunc("/user", controller.GetUserStories).Methods("GET")

	// ✅ Record a view
	storyRouter.HandleFunc("/view", controller.RecordView).Methods("POST")

	// ✅ Toggle a like
	storyRouter.HandleFunc("/like", controller.ToggleLike).Methods("POST")

	// ✅ Owner-only viewer list
	storyRouter.HandleFunc("/viewers", controller.GetViewers).Methods("GET")

	// ✅ Owner-only story deletion
	storyRouter.HandleFunc("", controller.DeleteStory).Methods("DELETE")

	// ✅ Sweep expired stories (scheduled caller)
	storyRouter.HandleFunc("/cleanup", controller.CleanupExpired).Methods("POST")
}
