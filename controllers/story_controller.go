package controllers

import (
	"net/http"

	"pulse_server/services"
)

// StoryController handles the ephemeral story surface
type StoryController struct {
	Stories *services.StoryService
	Users   *services.UserProfileService
}

func NewStoryController(stories *services.StoryService, users *services.UserProfileService) *StoryController {
	return &StoryController{Stories: stories, Users: users}
}

// CreateStory - publishes a story that expires 24h after creation
func (c *StoryController) CreateStory(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request services.CreateStoryInput
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	storyID, err := c.Stories.Create(r.Context(), caller.UserID, request)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"storyId": storyID})
}

// GetFeed - active stories from the caller and accounts they follow,
// grouped per owner
func (c *StoryController) GetFeed(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	groups, err := c.Stories.FeedStories(r.Context(), caller.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// GetUserStories - a single user's active stories
func (c *StoryController) GetUserStories(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	targetID := r.URL.Query().Get("userId")
	stories, err := c.Stories.UserStories(r.Context(), caller.UserID, targetID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stories)
}

// RecordView - counts the caller's first view of a story
func (c *StoryController) RecordView(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		StoryID string `json:"storyId"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	if err := c.Stories.RecordView(r.Context(), caller.UserID, request.StoryID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// ToggleLike - flips the caller's like on a story
func (c *StoryController) ToggleLike(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		StoryID string `json:"storyId"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	liked, err := c.Stories.ToggleLike(r.Context(), caller.UserID, request.StoryID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// GetViewers - owner-only viewer list, most recent first
func (c *StoryController) GetViewers(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	storyID := r.URL.Query().Get("storyId")
	viewers, err := c.Stories.ListViewers(r.Context(), caller.UserID, storyID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewers)
}

// DeleteStory - owner-only removal of a story and its engagement records
func (c *StoryController) DeleteStory(w http.ResponseWriter, r *http.Request) {
	caller, err := resolveCaller(r, c.Users)
	if err != nil {
		respondError(w, err)
		return
	}

	var request struct {
		StoryID string `json:"storyId"`
	}
	if err := decodeBody(r, &request); err != nil {
		respondError(w, err)
		return
	}

	if err := c.Stories.Delete(r.Context(), caller.UserID, request.StoryID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// CleanupExpired - sweeps expired stories; intended for a scheduled caller
func (c *StoryController) CleanupExpired(w http.ResponseWriter, r *http.Request) {
	removed, err := c.Stories.CleanupExpired(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"deletedCount": removed})
}
