package models

// ReadReceipt records that a user has read a message. At most one per
// (userId, messageId) pair, enforced by a conditional put on the key.
type ReadReceipt struct {
	UserID         string `dynamodbav:"userId" json:"userId"`
	MessageID      string `dynamodbav:"messageId" json:"messageId"`
	ConversationID string `dynamodbav:"conversationId" json:"conversationId"`
	ReadAt         string `dynamodbav:"readAt" json:"readAt"`
}

// ReadReceiptsTable is the DynamoDB table name for read receipts.
// Partition key userId, sort key messageId.
const ReadReceiptsTable = "ReadReceipts"

// ReceiptMessageIDIndex is the GSI for receipts of a given message
const ReceiptMessageIDIndex = "messageId-index"
