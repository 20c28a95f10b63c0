package services

import (
	"context"
	"log"
	"sort"
	"time"

	"pulse_server/apperrors"
	"pulse_server/models"
	"pulse_server/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// ConversationService manages direct conversation lifecycle and the
// conversation list view
type ConversationService struct {
	Dynamo *DynamoService
	Users  *UserProfileService
}

// PairKey normalizes an unordered user pair into the unique lock key for
// their direct conversation
func PairKey(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "#" + userB
}

// GetConversation fetches a conversation row, mapping absence to NotFound
func (cs *ConversationService) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	key := map[string]types.AttributeValue{
		"conversationId": &types.AttributeValueMemberS{Value: conversationID},
	}
	item, err := cs.Dynamo.GetItem(ctx, models.ConversationsTable, key)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch conversation", err)
	}
	if item == nil {
		return nil, apperrors.NotFound("conversation not found")
	}

	var conversation models.Conversation
	if err := attributevalue.UnmarshalMap(item, &conversation); err != nil {
		return nil, apperrors.Internal("failed to parse conversation", err)
	}
	return &conversation, nil
}

// RequireParticipant fetches the conversation and verifies the caller is a
// participant. Every message/receipt/typing operation gates on this.
func (cs *ConversationService) RequireParticipant(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conversation, err := cs.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, id := range conversation.ParticipantIDs {
		if id == userID {
			return conversation, nil
		}
	}
	return nil, apperrors.Forbidden("not a participant of this conversation")
}

// CreateOrGetDirect returns the single direct conversation for the caller
// and the other user, creating it if needed. The pair-lock row is written
// with attribute_not_exists in the same transaction as the conversation row,
// so concurrent duplicate calls collapse to one persisted conversation.
func (cs *ConversationService) CreateOrGetDirect(ctx context.Context, callerID, otherUserID string) (string, error) {
	if otherUserID == "" {
		return "", apperrors.InvalidArg("participantId is required")
	}
	if otherUserID == callerID {
		return "", apperrors.InvalidArg("cannot create a conversation with yourself")
	}
	if _, err := cs.Users.GetUserProfile(ctx, otherUserID); err != nil {
		return "", err
	}

	pairKey := PairKey(callerID, otherUserID)
	conversationID := uuid.New().String()

	participantIDs := []string{callerID, otherUserID}
	sort.Strings(participantIDs)

	conversation := models.Conversation{
		ConversationID:  conversationID,
		ParticipantIDs:  participantIDs,
		LastMessageTime: time.Now().UTC().Format(time.RFC3339Nano),
		IsGroup:         false,
	}

	pairItem, err := attributevalue.MarshalMap(models.ConversationPair{PairKey: pairKey, ConversationID: conversationID})
	if err != nil {
		return "", apperrors.Internal("failed to marshal pair lock", err)
	}
	conversationItem, err := attributevalue.MarshalMap(conversation)
	if err != nil {
		return "", apperrors.Internal("failed to marshal conversation", err)
	}

	err = cs.Dynamo.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(models.ConversationPairsTable),
					Item:                pairItem,
					ConditionExpression: aws.String("attribute_not_exists(pairKey)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(models.ConversationsTable),
					Item:      conversationItem,
				},
			},
		},
	})
	if err == nil {
		log.Printf("✅ Created conversation %s for pair %s", conversationID, pairKey)
		return conversationID, nil
	}
	if !IsConditionalCheckFailed(err) {
		return "", apperrors.Internal("failed to create conversation", err)
	}

	// Lost the pair lock: another call created the conversation first
	existing, err := cs.lookupPair(ctx, pairKey)
	if err != nil {
		return "", err
	}
	return existing, nil
}

func (cs *ConversationService) lookupPair(ctx context.Context, pairKey string) (string, error) {
	key := map[string]types.AttributeValue{
		"pairKey": &types.AttributeValueMemberS{Value: pairKey},
	}
	item, err := cs.Dynamo.GetItem(ctx, models.ConversationPairsTable, key)
	if err != nil {
		return "", apperrors.Internal("failed to fetch pair lock", err)
	}
	if item == nil {
		return "", apperrors.Internal("pair lock vanished after conditional failure", nil)
	}
	return utils.ExtractString(item, "conversationId"), nil
}

// ListForUser returns the caller's conversations, newest activity first,
// each joined with the other participants' profiles, the last non-deleted
// message and the caller's unread count.
func (cs *ConversationService) ListForUser(ctx context.Context, callerID string) ([]models.ConversationSummary, error) {
	var conversations []models.Conversation
	err := cs.Dynamo.ScanWithFilter(ctx, models.ConversationsTable, func(item map[string]types.AttributeValue) bool {
		for _, id := range utils.ExtractStringList(item, "participantIds") {
			if id == callerID {
				return true
			}
		}
		return false
	}, &conversations)
	if err != nil {
		return nil, apperrors.Internal("failed to list conversations", err)
	}

	readSet, err := cs.readMessageIDs(ctx, callerID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summary := models.ConversationSummary{Conversation: conversation}

		others := make([]string, 0, len(conversation.ParticipantIDs))
		for _, id := range conversation.ParticipantIDs {
			if id != callerID {
				others = append(others, id)
			}
		}
		profiles, err := cs.Users.GetProfilesByIDs(ctx, others)
		if err != nil {
			return nil, err
		}
		for _, id := range others {
			if p, ok := profiles[id]; ok {
				summary.Participants = append(summary.Participants, p)
			}
		}

		messages, err := cs.recentMessages(ctx, conversation.ConversationID)
		if err != nil {
			return nil, err
		}
		for i := range messages {
			msg := messages[i]
			if msg.IsDeleted {
				continue
			}
			if summary.LastMessage == nil {
				sender, ok := profiles[msg.SenderID]
				withSender := models.MessageWithSender{Message: msg}
				if ok {
					withSender.Sender = &sender
				} else if msg.SenderID == callerID {
					if self, err := cs.Users.GetUserProfile(ctx, callerID); err == nil {
						withSender.Sender = self
					}
				}
				summary.LastMessage = &withSender
			}
			if msg.SenderID != callerID {
				if _, read := readSet[msg.MessageID]; !read {
					summary.UnreadCount++
				}
			}
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageTime > summaries[j].LastMessageTime
	})
	return summaries, nil
}

// recentMessages fetches a conversation's messages newest first
func (cs *ConversationService) recentMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	keyCondition := "#conversationId = :conversationId"
	expressionValues := map[string]types.AttributeValue{
		":conversationId": &types.AttributeValueMemberS{Value: conversationID},
	}
	expressionNames := map[string]string{
		"#conversationId": "conversationId",
	}

	items, err := cs.Dynamo.QueryItemsWithOptions(ctx, models.MessagesTable, keyCondition, expressionValues, expressionNames, 200, true)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch messages", err)
	}

	var messages []models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, apperrors.Internal("failed to parse messages", err)
	}
	return messages, nil
}

// readMessageIDs collects the ids of every message the caller has a receipt
// for. Pages through the full receipt set: dropping older receipts at a page
// boundary would make read messages flip back to unread.
func (cs *ConversationService) readMessageIDs(ctx context.Context, callerID string) (map[string]struct{}, error) {
	keyCondition := "userId = :userId"
	expressionValues := map[string]types.AttributeValue{
		":userId": &types.AttributeValueMemberS{Value: callerID},
	}

	items, err := cs.Dynamo.QueryAllItems(ctx, models.ReadReceiptsTable, keyCondition, expressionValues, nil)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch read receipts", err)
	}

	readSet := make(map[string]struct{}, len(items))
	for _, item := range items {
		if id := utils.ExtractString(item, "messageId"); id != "" {
			readSet[id] = struct{}{}
		}
	}
	return readSet, nil
}
