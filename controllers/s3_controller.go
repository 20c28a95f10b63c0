package controllers

import (
	"net/http"

	"pulse_server/apperrors"
	"pulse_server/services"
)

// MediaController issues presigned URLs for client-side media upload
type MediaController struct {
	Media services.MediaStore
}

func NewMediaController(media services.MediaStore) *MediaController {
	return &MediaController{Media: media}
}

// GeneratePresignedURL - returns a short-lived PUT URL and the storage key
// the client should reference when sending media messages or stories
func (c *MediaController) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FileName string `json:"fileName"`
		FileType string `json:"fileType"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}
	if request.FileName == "" || request.FileType == "" {
		respondError(w, apperrors.InvalidArg("fileName and fileType are required"))
		return
	}

	url, key, err := c.Media.GenerateUploadURL(r.Context(), request.FileName, request.FileType)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"uploadUrl": url, "storageKey": key})
}

// GetPresignedReadURL - returns a read URL for an already uploaded object
func (c *MediaController) GetPresignedReadURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		StorageKey string `json:"storageKey"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}
	if request.StorageKey == "" {
		respondError(w, apperrors.InvalidArg("storageKey is required"))
		return
	}

	url, err := c.Media.GenerateReadURL(r.Context(), request.StorageKey)
	if err != nil {
		respondError(w, apperrors.MediaNotFound("media object is not available", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"readUrl": url})
}
