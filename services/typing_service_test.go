package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"pulse_server/apperrors"
	"pulse_server/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTypingEnv(t *testing.T) (*testEnv, *TypingService, *miniredis.Miniredis) {
	t.Helper()
	env := newTestEnv()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	typing := &TypingService{Redis: client, Conversations: env.conversations, Users: env.users}
	return env, typing, mr
}

func TestSetTypingRequiresParticipant(t *testing.T) {
	env, typing, _ := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	carol := env.seedUser(t, "carol")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	err := typing.SetTyping(context.Background(), carol.UserID, conversationID, true)
	require.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
}

func TestListTypingShowsOtherParticipants(t *testing.T) {
	env, typing, _ := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	require.NoError(t, typing.SetTyping(context.Background(), bob.UserID, conversationID, true))

	fromAlice, err := typing.ListTyping(context.Background(), alice.UserID, conversationID)
	require.NoError(t, err)
	require.Len(t, fromAlice, 1)
	require.Equal(t, bob.UserID, fromAlice[0].UserID)

	// The caller never appears in their own typing list
	fromBob, err := typing.ListTyping(context.Background(), bob.UserID, conversationID)
	require.NoError(t, err)
	require.Empty(t, fromBob)
}

func TestStopTypingClearsIndicator(t *testing.T) {
	env, typing, _ := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	require.NoError(t, typing.SetTyping(context.Background(), bob.UserID, conversationID, true))
	require.NoError(t, typing.SetTyping(context.Background(), bob.UserID, conversationID, false))

	listed, err := typing.ListTyping(context.Background(), alice.UserID, conversationID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestTypingGoesStaleWithoutStopSignal(t *testing.T) {
	env, typing, _ := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	// A client that crashed mid-type leaves a flag that simply ages out of
	// the staleness window
	stale := models.TypingIndicator{
		ConversationID: conversationID,
		UserID:         bob.UserID,
		IsTyping:       true,
		LastTypingTime: time.Now().UnixMilli() - typingWindowMillis - 1000,
	}
	payload, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, typing.Redis.Set(context.Background(), typingKey(conversationID, bob.UserID), payload, typingKeyTTL).Err())

	listed, err := typing.ListTyping(context.Background(), alice.UserID, conversationID)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestListTypingRequiresParticipant(t *testing.T) {
	env, typing, _ := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	carol := env.seedUser(t, "carol")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	_, err := typing.ListTyping(context.Background(), carol.UserID, conversationID)
	require.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
}

func TestSetTypingKeyCarriesTTL(t *testing.T) {
	env, typing, mr := newTypingEnv(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	conversationID := env.directConversation(t, alice.UserID, bob.UserID)

	require.NoError(t, typing.SetTyping(context.Background(), bob.UserID, conversationID, true))

	// Key expiry is garbage collection; once it fires the entry is gone
	mr.FastForward(typingKeyTTL + time.Second)
	listed, err := typing.ListTyping(context.Background(), alice.UserID, conversationID)
	require.NoError(t, err)
	require.Empty(t, listed)
}
