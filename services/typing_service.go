package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulse_server/apperrors"
	"pulse_server/models"

	"github.com/redis/go-redis/v9"
)

const (
	// typingWindowMillis is the staleness floor: indicators older than this
	// are treated as not-typing without an explicit stop signal, so a client
	// that crashes mid-type can never leave a stuck indicator.
	typingWindowMillis = 5000

	// typingKeyTTL is garbage collection only; visibility is decided by the
	// window above, never by key expiry.
	typingKeyTTL = 10 * time.Second
)

// TypingService tracks short-lived per-user per-conversation typing flags
// in Redis
type TypingService struct {
	Redis         *redis.Client
	Conversations *ConversationService
	Users         *UserProfileService
}

func typingKey(conversationID, userID string) string {
	return fmt.Sprintf("typing:%s:%s", conversationID, userID)
}

// SetTyping upserts the caller's typing flag for the conversation with a
// fresh timestamp
func (ts *TypingService) SetTyping(ctx context.Context, callerID, conversationID string, isTyping bool) error {
	if conversationID == "" {
		return apperrors.InvalidArg("conversationId is required")
	}
	if _, err := ts.Conversations.RequireParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}

	indicator := models.TypingIndicator{
		ConversationID: conversationID,
		UserID:         callerID,
		IsTyping:       isTyping,
		LastTypingTime: time.Now().UnixMilli(),
	}
	payload, err := json.Marshal(indicator)
	if err != nil {
		return apperrors.Internal("failed to marshal typing indicator", err)
	}

	if err := ts.Redis.Set(ctx, typingKey(conversationID, callerID), payload, typingKeyTTL).Err(); err != nil {
		return apperrors.Internal("failed to store typing indicator", err)
	}
	return nil
}

// ListTyping returns the participants other than the caller who are typing
// right now: flag set and last update within the staleness window.
func (ts *TypingService) ListTyping(ctx context.Context, callerID, conversationID string) ([]models.UserProfile, error) {
	conversation, err := ts.Conversations.RequireParticipant(ctx, conversationID, callerID)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UnixMilli() - typingWindowMillis
	typing := make([]models.UserProfile, 0)
	for _, participantID := range conversation.ParticipantIDs {
		if participantID == callerID {
			continue
		}

		payload, err := ts.Redis.Get(ctx, typingKey(conversationID, participantID)).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, apperrors.Internal("failed to fetch typing indicator", err)
		}

		var indicator models.TypingIndicator
		if err := json.Unmarshal([]byte(payload), &indicator); err != nil {
			continue // stale or corrupt entry, treat as not typing
		}
		if !indicator.IsTyping || indicator.LastTypingTime <= cutoff {
			continue
		}

		profile, err := ts.Users.GetUserProfile(ctx, participantID)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		typing = append(typing, *profile)
	}

	return typing, nil
}
