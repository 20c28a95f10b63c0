package models

// TypingIndicator is the ephemeral per-user per-conversation typing flag.
// It lives in Redis, not DynamoDB: entries age out of presence queries once
// lastTypingTime falls outside the staleness window, with the key TTL as
// garbage collection only.
type TypingIndicator struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	IsTyping       bool   `json:"isTyping"`
	LastTypingTime int64  `json:"lastTypingTime"` // unix millis
}
