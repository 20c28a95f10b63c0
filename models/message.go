package models

// Message types supported in a conversation
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeVideo = "video"
	MessageTypeAudio = "audio"
)

type Message struct {
	ConversationID string `dynamodbav:"conversationId" json:"conversationId"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
	MessageID      string `dynamodbav:"messageId" json:"messageId"`
	SenderID       string `dynamodbav:"senderId" json:"senderId"`
	Content        string `dynamodbav:"content,omitempty" json:"content,omitempty"`
	MessageType    string `dynamodbav:"messageType" json:"messageType"`
	MediaKey       string `dynamodbav:"mediaKey,omitempty" json:"mediaKey,omitempty"`
	MediaURL       string `dynamodbav:"mediaUrl,omitempty" json:"mediaUrl,omitempty"`
	IsDeleted      bool   `dynamodbav:"isDeleted" json:"isDeleted"`
	EditedAt       string `dynamodbav:"editedAt,omitempty" json:"editedAt,omitempty"` // reserved, no edit operation yet
}

// IsMedia reports whether the message carries an uploaded media object
func (m Message) IsMedia() bool {
	return m.MessageType != MessageTypeText
}

// MessageWithSender enriches a message with its sender profile and the
// caller-perspective read flag
type MessageWithSender struct {
	Message
	Sender *UserProfile `json:"sender,omitempty"`
	IsRead bool         `json:"isRead"`
}

// MessagesTable is the DynamoDB table name for messages.
// Partition key conversationId, sort key createdAt (the ordering key).
const MessagesTable = "Messages"

// MessageIDIndex is the GSI for by-id message lookups
const MessageIDIndex = "messageId-index"
