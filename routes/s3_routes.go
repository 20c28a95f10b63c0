package routes

import (
	"pulse_server/controllers"
	"pulse_server/services"

	"github.com/gorilla/mux"
)

// RegisterS3Routes sets up routes for media upload and read URLs
func RegisterS3Routes(r *mux.Router, media services.MediaStore) {
	controller := controllers.NewMediaController(media)

	mediaRouter := r.PathPrefix("/api/media").Subrouter()

	// ✅ Presigned PUT target for a client-side upload
	mediaRouter.HandleFunc("/upload-url", controller.GeneratePresignedURL).Methods("POST")

	// ✅ Presigned GET for an already uploaded object
	mediaRouter.HandleFunc("/read-url", controller.GetPresignedReadURL).Methods("POST")
}
