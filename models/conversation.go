package models

// Conversation is a direct (or reserved group) chat between users
type Conversation struct {
	ConversationID  string   `dynamodbav:"conversationId" json:"conversationId"`
	ParticipantIDs  []string `dynamodbav:"participantIds" json:"participantIds"`
	LastMessageID   string   `dynamodbav:"lastMessageId,omitempty" json:"lastMessageId,omitempty"`
	LastMessageTime string   `dynamodbav:"lastMessageTime" json:"lastMessageTime"`
	IsGroup         bool     `dynamodbav:"isGroup" json:"isGroup"`
	GroupName       string   `dynamodbav:"groupName,omitempty" json:"groupName,omitempty"`
	GroupImage      string   `dynamodbav:"groupImage,omitempty" json:"groupImage,omitempty"`
}

// ConversationPair pins the unordered participant pair of a direct
// conversation to a single conversation id. The conditional put on pairKey is
// what makes concurrent duplicate creates collapse to one row.
type ConversationPair struct {
	PairKey        string `dynamodbav:"pairKey" json:"pairKey"`
	ConversationID string `dynamodbav:"conversationId" json:"conversationId"`
}

// ConversationSummary is the list-view projection returned to clients
type ConversationSummary struct {
	Conversation
	Participants []UserProfile      `json:"participants"`
	LastMessage  *MessageWithSender `json:"lastMessage,omitempty"`
	UnreadCount  int                `json:"unreadCount"`
}

// ConversationsTable is the DynamoDB table name for conversations
const ConversationsTable = "Conversations"

// ConversationPairsTable is the DynamoDB table enforcing pair uniqueness
const ConversationPairsTable = "ConversationPairs"
