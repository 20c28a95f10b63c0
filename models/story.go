package models

// Story media types
const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

// Story is a time-bounded ephemeral media post. ExpiresAt is fixed at
// creation (createdAt + 24h) and never extended; rows past it are invisible
// to feed queries until a delete or cleanup sweep removes them.
type Story struct {
	StoryID   string `dynamodbav:"storyId" json:"storyId"`
	UserID    string `dynamodbav:"userId" json:"userId"`
	MediaKey  string `dynamodbav:"mediaKey" json:"mediaKey"`
	MediaURL  string `dynamodbav:"mediaUrl" json:"mediaUrl"`
	MediaType string `dynamodbav:"mediaType" json:"mediaType"`
	Caption   string `dynamodbav:"caption,omitempty" json:"caption,omitempty"`
	ViewCount int    `dynamodbav:"viewCount" json:"viewCount"`
	LikeCount int    `dynamodbav:"likeCount" json:"likeCount"`
	CreatedAt int64  `dynamodbav:"createdAt" json:"createdAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt" json:"expiresAt"`
}

// StoryView records a single view of a story by a user (never the owner)
type StoryView struct {
	StoryID  string `dynamodbav:"storyId" json:"storyId"`
	UserID   string `dynamodbav:"userId" json:"userId"`
	ViewedAt int64  `dynamodbav:"viewedAt" json:"viewedAt"`
}

// StoryLike marks a story as liked by a user. The story's likeCount is a
// cache kept exactly in sync with the set of these rows.
type StoryLike struct {
	StoryID string `dynamodbav:"storyId" json:"storyId"`
	UserID  string `dynamodbav:"userId" json:"userId"`
}

// StoryGroup is one owner's slice of the story feed
type StoryGroup struct {
	User      UserProfile `json:"user"`
	Stories   []Story     `json:"stories"`
	HasUnseen bool        `json:"hasUnseen"`
	IsOwn     bool        `json:"isOwn"`
}

// StoryViewer pairs a viewer profile with the view timestamp
type StoryViewer struct {
	User     UserProfile `json:"user"`
	ViewedAt int64       `json:"viewedAt"`
}

// StoriesTable is the DynamoDB table name for stories
const StoriesTable = "Stories"

// StoryUserIndex is the GSI for a user's own stories
const StoryUserIndex = "userId-index"

// StoryViewsTable holds per-viewer view records (storyId, userId)
const StoryViewsTable = "StoryViews"

// StoryLikesTable holds per-user like records (storyId, userId)
const StoryLikesTable = "StoryLikes"
