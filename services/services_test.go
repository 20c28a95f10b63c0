package services

import (
	"context"
	"fmt"
	"testing"

	"pulse_server/models"

	"github.com/stretchr/testify/require"
)

// fakeMedia is an in-memory MediaStore. Keys listed in missing resolve to
// errors the way a dangling storage reference would.
type fakeMedia struct {
	missing map[string]bool
	deleted []string
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{missing: make(map[string]bool)}
}

func (m *fakeMedia) GenerateUploadURL(ctx context.Context, fileName, fileType string) (string, string, error) {
	key := "media/" + fileName
	return "https://uploads.test/" + key, key, nil
}

func (m *fakeMedia) GenerateReadURL(ctx context.Context, key string) (string, error) {
	if m.missing[key] {
		return "", fmt.Errorf("no such object: %s", key)
	}
	return "https://cdn.test/" + key, nil
}

func (m *fakeMedia) DeleteObject(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

// testEnv wires the full service graph over the in-memory fakes
type testEnv struct {
	fake  *fakeDynamo
	media *fakeMedia

	users         *UserProfileService
	follows       *FollowService
	conversations *ConversationService
	messages      *MessageService
	receipts      *ReadReceiptService
	stories       *StoryService
}

func newTestEnv() *testEnv {
	fake := newFakeDynamo()
	media := newFakeMedia()
	dynamo := &DynamoService{Client: fake}

	users := &UserProfileService{Dynamo: dynamo}
	follows := &FollowService{Dynamo: dynamo}
	conversations := &ConversationService{Dynamo: dynamo, Users: users}

	return &testEnv{
		fake:          fake,
		media:         media,
		users:         users,
		follows:       follows,
		conversations: conversations,
		messages:      &MessageService{Dynamo: dynamo, Conversations: conversations, Users: users, Media: media},
		receipts:      &ReadReceiptService{Dynamo: dynamo, Conversations: conversations},
		stories:       &StoryService{Dynamo: dynamo, Users: users, Follows: follows, Media: media},
	}
}

func (e *testEnv) seedUser(t *testing.T, username string) models.UserProfile {
	t.Helper()
	profile := models.UserProfile{
		UserID:     "u-" + username,
		ExternalID: "ext-" + username,
		Username:   username,
		FullName:   username + " Example",
	}
	require.NoError(t, e.conversations.Dynamo.PutItem(context.Background(), models.UserProfilesTable, profile))
	return profile
}

func (e *testEnv) seedFollow(t *testing.T, followerID, followingID string) {
	t.Helper()
	follow := models.Follow{FollowerID: followerID, FollowingID: followingID}
	require.NoError(t, e.conversations.Dynamo.PutItem(context.Background(), models.FollowsTable, follow))
}

func (e *testEnv) directConversation(t *testing.T, callerID, otherID string) string {
	t.Helper()
	conversationID, err := e.conversations.CreateOrGetDirect(context.Background(), callerID, otherID)
	require.NoError(t, err)
	return conversationID
}

func (e *testEnv) sendText(t *testing.T, senderID, conversationID, content string) string {
	t.Helper()
	messageID, err := e.messages.Send(context.Background(), senderID, SendMessageInput{
		ConversationID: conversationID,
		Content:        content,
		MessageType:    models.MessageTypeText,
	})
	require.NoError(t, err)
	return messageID
}

func (e *testEnv) createStory(t *testing.T, ownerID, storageKey string) string {
	t.Helper()
	storyID, err := e.stories.Create(context.Background(), ownerID, CreateStoryInput{
		StorageKey: storageKey,
		MediaType:  models.MediaTypeImage,
	})
	require.NoError(t, err)
	return storyID
}
