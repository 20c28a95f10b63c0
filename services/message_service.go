package services

import (
	"context"
	"log"
	"time"

	"pulse_server/apperrors"
	"pulse_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// MessageService appends, lists and soft-deletes conversation messages
type MessageService struct {
	Dynamo        *DynamoService
	Conversations *ConversationService
	Users         *UserProfileService
	Media         MediaStore
}

// SendMessageInput carries the typed arguments of a send call
type SendMessageInput struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content,omitempty"`
	MessageType    string `json:"messageType"`
	MediaKey       string `json:"mediaKey,omitempty"`
}

func validateSendInput(in SendMessageInput) error {
	switch in.MessageType {
	case models.MessageTypeText:
		if in.Content == "" {
			return apperrors.InvalidArg("text messages require content")
		}
	case models.MessageTypeImage, models.MessageTypeVideo, models.MessageTypeAudio:
		if in.MediaKey == "" {
			return apperrors.InvalidArg("media messages require a mediaKey")
		}
	default:
		return apperrors.InvalidArg("unknown message type")
	}
	return nil
}

// Send appends a message to a conversation and advances the conversation's
// last-message pointer. The append is the primary guarantee: a pointer
// update failure is logged but never rolls the message back.
func (ms *MessageService) Send(ctx context.Context, callerID string, in SendMessageInput) (string, error) {
	if in.ConversationID == "" {
		return "", apperrors.InvalidArg("conversationId is required")
	}
	if err := validateSendInput(in); err != nil {
		return "", err
	}
	if _, err := ms.Conversations.RequireParticipant(ctx, in.ConversationID, callerID); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	message := models.Message{
		ConversationID: in.ConversationID,
		CreatedAt:      now.Format(time.RFC3339Nano),
		MessageID:      uuid.New().String(),
		SenderID:       callerID,
		Content:        in.Content,
		MessageType:    in.MessageType,
		MediaKey:       in.MediaKey,
		IsDeleted:      false,
	}

	err := ms.Dynamo.PutItemConditional(ctx, models.MessagesTable, message,
		"attribute_not_exists(conversationId) AND attribute_not_exists(createdAt)")
	if err != nil {
		return "", apperrors.Internal("failed to store message", err)
	}

	// Last-message pointer update is best-effort after the append
	key := map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: in.ConversationID},
	}
	updateExpression := "SET lastMessageId = :messageId, lastMessageTime = :now"
	expressionValues := map[string]types.AttributeValue{
		":messageId": &types.AttributeValueMemberS{Value: message.MessageID},
		":now":       &types.AttributeValueMemberS{Value: message.CreatedAt},
	}
	if _, err := ms.Dynamo.UpdateItem(ctx, models.ConversationsTable, updateExpression, key, expressionValues, nil); err != nil {
		log.Printf("⚠️ Failed to update last-message pointer for %s: %v", in.ConversationID, err)
	}

	log.Printf("📩 Stored message %s in conversation %s", message.MessageID, in.ConversationID)
	return message.MessageID, nil
}

// ListMessages returns up to limit messages in chronological order,
// excluding soft-deleted rows, enriched with sender profile and the
// caller-perspective isRead flag.
func (ms *MessageService) ListMessages(ctx context.Context, callerID, conversationID string, limit int) ([]models.MessageWithSender, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := ms.Conversations.RequireParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}

	keyCondition := "#conversationId = :conversationId"
	expressionValues := map[string]types.AttributeValue{
		":conversationId": &types.AttributeValueMemberS{Value: conversationID},
	}
	expressionNames := map[string]string{
		"#conversationId": "conversationId",
	}

	items, err := ms.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition, expressionValues, expressionNames, int32(limit), true)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch messages", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, apperrors.Internal("failed to parse messages", err)
	}

	visible := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.IsDeleted {
			visible = append(visible, msg)
		}
	}
	// Reverse so the latest message appears last (chronological order)
	for i, j := 0, len(visible)-1; i < j; i, j = i+1, j-1 {
		visible[i], visible[j] = visible[j], visible[i]
	}

	readSet, err := ms.Conversations.readMessageIDs(ctx, callerID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]string, 0, len(visible))
	for _, msg := range visible {
		senderIDs = append(senderIDs, msg.SenderID)
	}
	profiles, err := ms.Users.GetProfilesByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}

	enriched := make([]models.MessageWithSender, 0, len(visible))
	for _, msg := range visible {
		entry := models.MessageWithSender{Message: msg}
		if sender, ok := profiles[msg.SenderID]; ok {
			senderCopy := sender
			entry.Sender = &senderCopy
		}
		if msg.SenderID == callerID {
			// Sender's perspective: read once any other participant holds a receipt
			read, err := ms.readByAnyOther(ctx, msg.MessageID, callerID)
			if err != nil {
				return nil, err
			}
			entry.IsRead = read
		} else {
			_, entry.IsRead = readSet[msg.MessageID]
		}
		if msg.MediaKey != "" {
			if url, err := ms.Media.GenerateReadURL(ctx, msg.MediaKey); err == nil {
				entry.MediaURL = url
			} else {
				log.Printf("⚠️ Failed to resolve media for message %s: %v", msg.MessageID, err)
			}
		}
		enriched = append(enriched, entry)
	}

	return enriched, nil
}

// readByAnyOther reports whether any participant other than the sender holds
// a receipt for the message
func (ms *MessageService) readByAnyOther(ctx context.Context, messageID, senderID string) (bool, error) {
	keyCondition := "#messageId = :messageId"
	expressionValues := map[string]types.AttributeValue{
		":messageId": &types.AttributeValueMemberS{Value: messageID},
	}
	expressionNames := map[string]string{
		"#messageId": "messageId",
	}

	items, err := ms.Dynamo.QueryItemsWithIndex(ctx, models.ReadReceiptsTable, models.ReceiptMessageIDIndex, keyCondition, expressionValues, expressionNames, 10)
	if err != nil {
		return false, apperrors.Internal("failed to fetch receipts", err)
	}

	var receipts []models.ReadReceipt
	if err := attributevalue.UnmarshalListOfMaps(items, &receipts); err != nil {
		return false, apperrors.Internal("failed to parse receipts", err)
	}
	for _, r := range receipts {
		if r.UserID != senderID {
			return true, nil
		}
	}
	return false, nil
}

// GetByMessageID looks a message up through the messageId GSI
func (ms *MessageService) GetByMessageID(ctx context.Context, messageID string) (*models.Message, error) {
	keyCondition := "#messageId = :messageId"
	expressionValues := map[string]types.AttributeValue{
		":messageId": &types.AttributeValueMemberS{Value: messageID},
	}
	expressionNames := map[string]string{
		"#messageId": "messageId",
	}

	items, err := ms.Dynamo.QueryItemsWithIndex(ctx, models.MessagesTable, models.MessageIDIndex, keyCondition, expressionValues, expressionNames, 1)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch message", err)
	}
	if len(items) == 0 {
		return nil, apperrors.NotFound("message not found")
	}

	var message models.Message
	if err := attributevalue.UnmarshalMap(items[0], &message); err != nil {
		return nil, apperrors.Internal("failed to parse message", err)
	}
	return &message, nil
}

// SoftDelete hides a message permanently. Only the original sender may
// delete; carried media is released.
func (ms *MessageService) SoftDelete(ctx context.Context, callerID, messageID string) error {
	if messageID == "" {
		return apperrors.InvalidArg("messageId is required")
	}

	message, err := ms.GetByMessageID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != callerID {
		return apperrors.Forbidden("only the sender can delete a message")
	}

	key := map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: message.ConversationID},
		"createdAt":      &types.AttributeValueMemberS{Value: message.CreatedAt},
	}
	updateExpression := "SET isDeleted = :true"
	expressionValues := map[string]types.AttributeValue{
		":true": &types.AttributeValueMemberBOOL{Value: true},
	}
	if _, err := ms.Dynamo.UpdateItem(ctx, models.MessagesTable, updateExpression, key, expressionValues, nil); err != nil {
		return apperrors.Internal("failed to delete message", err)
	}

	if message.MediaKey != "" {
		if err := ms.Media.DeleteObject(ctx, message.MediaKey); err != nil {
			log.Printf("⚠️ Failed to release media for message %s: %v", messageID, err)
		}
	}

	log.Printf("🗑️ Soft-deleted message %s", messageID)
	return nil
}
