package services

import (
	"context"
	"log"
	"time"

	"pulse_server/apperrors"
	"pulse_server/models"
)

// ReadReceiptService tracks per-user per-message read marks and derives
// unread counts from them
type ReadReceiptService struct {
	Dynamo        *DynamoService
	Conversations *ConversationService
}

// MarkRead idempotently ensures a receipt exists for each given message.
// Re-marking an already-read message is a no-op, not an error: the
// conditional put converts the duplicate-key failure into success so rapid
// duplicate taps and client retries stay simple.
func (rs *ReadReceiptService) MarkRead(ctx context.Context, callerID, conversationID string, messageIDs []string) error {
	if conversationID == "" {
		return apperrors.InvalidArg("conversationId is required")
	}
	if _, err := rs.Conversations.RequireParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	marked := 0
	for _, messageID := range messageIDs {
		if messageID == "" {
			continue
		}
		receipt := models.ReadReceipt{
			UserID:         callerID,
			MessageID:      messageID,
			ConversationID: conversationID,
			ReadAt:         now,
		}
		err := rs.Dynamo.PutItemConditional(ctx, models.ReadReceiptsTable, receipt,
			"attribute_not_exists(userId) AND attribute_not_exists(messageId)")
		if err != nil {
			if IsConditionalCheckFailed(err) {
				continue // already read
			}
			return apperrors.Internal("failed to store read receipt", err)
		}
		marked++
	}

	log.Printf("✅ Marked %d of %d messages read in conversation %s", marked, len(messageIDs), conversationID)
	return nil
}

// UnreadCount counts non-deleted messages from other senders that the
// caller holds no receipt for. Adding receipts can only shrink it.
func (rs *ReadReceiptService) UnreadCount(ctx context.Context, callerID, conversationID string) (int, error) {
	if _, err := rs.Conversations.RequireParticipant(ctx, conversationID, callerID); err != nil {
		return 0, err
	}

	messages, err := rs.Conversations.recentMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	readSet, err := rs.Conversations.readMessageIDs(ctx, callerID)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, msg := range messages {
		if msg.IsDeleted || msg.SenderID == callerID {
			continue
		}
		if _, read := readSet[msg.MessageID]; !read {
			count++
		}
	}
	return count, nil
}
