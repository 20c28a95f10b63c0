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

// storyTTL is the fixed lifetime of a story; expiresAt is assigned once at
// creation and never extended.
const storyTTL = 24 * time.Hour

// StoryService manages ephemeral stories: creation, the grouped feed,
// view/like accounting and expiry teardown
type StoryService struct {
	Dynamo  *DynamoService
	Users   *UserProfileService
	Follows *FollowService
	Media   MediaStore
}

// CreateStoryInput carries the typed arguments of a story create call
type CreateStoryInput struct {
	StorageKey string `json:"storageKey"`
	MediaType  string `json:"mediaType"`
	Caption    string `json:"caption,omitempty"`
}

// Create resolves the media reference to a display URL and stores the story
// with a 24-hour expiry
func (ss *StoryService) Create(ctx context.Context, callerID string, in CreateStoryInput) (string, error) {
	if in.StorageKey == "" {
		return "", apperrors.InvalidArg("storageKey is required")
	}
	if in.MediaType != models.MediaTypeImage && in.MediaType != models.MediaTypeVideo {
		return "", apperrors.InvalidArg("mediaType must be image or video")
	}

	mediaURL, err := ss.Media.GenerateReadURL(ctx, in.StorageKey)
	if err != nil {
		return "", apperrors.MediaNotFound("media reference did not resolve", err)
	}

	now := time.Now().UnixMilli()
	story := models.Story{
		StoryID:   uuid.New().String(),
		UserID:    callerID,
		MediaKey:  in.StorageKey,
		MediaURL:  mediaURL,
		MediaType: in.MediaType,
		Caption:   in.Caption,
		ViewCount: 0,
		LikeCount: 0,
		CreatedAt: now,
		ExpiresAt: now + storyTTL.Milliseconds(),
	}

	if err := ss.Dynamo.PutItem(ctx, models.StoriesTable, story); err != nil {
		return "", apperrors.Internal("failed to store story", err)
	}

	log.Printf("✅ Created story %s for user %s", story.StoryID, callerID)
	return story.StoryID, nil
}

// getStory fetches a story row, mapping absence to NotFound
func (ss *StoryService) getStory(ctx context.Context, storyID string) (*models.Story, error) {
	key := map[string]types.AttributeValue{
		"storyId": &types.AttributeValueMemberS{Value: storyID},
	}
	item, err := ss.Dynamo.GetItem(ctx, models.StoriesTable, key)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch story", err)
	}
	if item == nil {
		return nil, apperrors.NotFound("story not found")
	}

	var story models.Story
	if err := attributevalue.UnmarshalMap(item, &story); err != nil {
		return nil, apperrors.Internal("failed to parse story", err)
	}
	return &story, nil
}

// FeedStories returns active stories from the caller and everyone they
// follow, grouped by owner. The caller's own group sorts first; the rest
// sort by their newest story, descending.
func (ss *StoryService) FeedStories(ctx context.Context, callerID string) ([]models.StoryGroup, error) {
	followingIDs, err := ss.Follows.FollowingOf(ctx, callerID)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch follow graph", err)
	}

	userSet := map[string]struct{}{callerID: {}}
	for _, id := range followingIDs {
		userSet[id] = struct{}{}
	}

	now := time.Now().UnixMilli()
	var active []models.Story
	err = ss.Dynamo.ScanWithFilter(ctx, models.StoriesTable, func(item map[string]types.AttributeValue) bool {
		if utils.ExtractNumber(item, "expiresAt") <= now {
			return false
		}
		_, relevant := userSet[utils.ExtractString(item, "userId")]
		return relevant
	}, &active)
	if err != nil {
		return nil, apperrors.Internal("failed to scan stories", err)
	}

	byOwner := make(map[string][]models.Story)
	for _, story := range active {
		byOwner[story.UserID] = append(byOwner[story.UserID], story)
	}

	groups := make([]models.StoryGroup, 0, len(byOwner))
	for ownerID, stories := range byOwner {
		owner, err := ss.Users.GetUserProfile(ctx, ownerID)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				continue
			}
			return nil, err
		}

		sort.SliceStable(stories, func(i, j int) bool {
			return stories[i].CreatedAt > stories[j].CreatedAt
		})

		hasUnseen := false
		for _, story := range stories {
			viewed, err := ss.hasViewed(ctx, story.StoryID, callerID)
			if err != nil {
				return nil, err
			}
			if !viewed {
				hasUnseen = true
				break
			}
		}

		groups = append(groups, models.StoryGroup{
			User:      *owner,
			Stories:   stories,
			HasUnseen: hasUnseen,
			IsOwn:     ownerID == callerID,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].IsOwn != groups[j].IsOwn {
			return groups[i].IsOwn
		}
		return groups[i].Stories[0].CreatedAt > groups[j].Stories[0].CreatedAt
	})
	return groups, nil
}

// UserStories returns a user's active stories, newest first. targetUserID
// defaults to the caller.
func (ss *StoryService) UserStories(ctx context.Context, callerID, targetUserID string) ([]models.Story, error) {
	if targetUserID == "" {
		targetUserID = callerID
	}

	keyCondition := "userId = :userId"
	expressionValues := map[string]types.AttributeValue{
		":userId": &types.AttributeValueMemberS{Value: targetUserID},
	}

	items, err := ss.Dynamo.QueryItemsWithIndex(ctx, models.StoriesTable, models.StoryUserIndex, keyCondition, expressionValues, nil, 100)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch stories", err)
	}

	var stories []models.Story
	if err := attributevalue.UnmarshalListOfMaps(items, &stories); err != nil {
		return nil, apperrors.Internal("failed to parse stories", err)
	}

	now := time.Now().UnixMilli()
	activeStories := make([]models.Story, 0, len(stories))
	for _, story := range stories {
		if story.ExpiresAt > now {
			activeStories = append(activeStories, story)
		}
	}
	sort.SliceStable(activeStories, func(i, j int) bool {
		return activeStories[i].CreatedAt > activeStories[j].CreatedAt
	})
	return activeStories, nil
}

func (ss *StoryService) hasViewed(ctx context.Context, storyID, userID string) (bool, error) {
	key := map[string]types.AttributeValue{
		"storyId": &types.AttributeValueMemberS{Value: storyID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	}
	item, err := ss.Dynamo.GetItem(ctx, models.StoryViewsTable, key)
	if err != nil {
		return false, apperrors.Internal("failed to fetch story view", err)
	}
	return item != nil, nil
}

// RecordView idempotently records that the caller viewed the story and
// bumps the view counter. The owner viewing their own story is never
// counted or recorded.
func (ss *StoryService) RecordView(ctx context.Context, callerID, storyID string) error {
	story, err := ss.getStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.UserID == callerID {
		return nil
	}

	view := models.StoryView{
		StoryID:  storyID,
		UserID:   callerID,
		ViewedAt: time.Now().UnixMilli(),
	}
	viewItem, err := attributevalue.MarshalMap(view)
	if err != nil {
		return apperrors.Internal("failed to marshal story view", err)
	}

	// View record and counter move in one transaction: either both land or
	// neither does, so the counter always equals the number of view rows.
	err = ss.Dynamo.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(models.StoryViewsTable),
					Item:                viewItem,
					ConditionExpression: aws.String("attribute_not_exists(storyId) AND attribute_not_exists(userId)"),
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(models.StoriesTable),
					Key:                 map[string]types.AttributeValue{"storyId": &types.AttributeValueMemberS{Value: storyID}},
					UpdateExpression:    aws.String("ADD viewCount :one"),
					ConditionExpression: aws.String("attribute_exists(storyId)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":one": &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return nil // already viewed, or the story vanished mid-flight
		}
		return apperrors.Internal("failed to store story view", err)
	}
	return nil
}

// ToggleLike flips the caller's like on the story and returns the new
// state. The like row and the counter move together in one transaction each
// way, so the counter always equals the number of like rows and the
// decrement is floored at zero.
func (ss *StoryService) ToggleLike(ctx context.Context, callerID, storyID string) (bool, error) {
	if _, err := ss.getStory(ctx, storyID); err != nil {
		return false, err
	}

	like := models.StoryLike{StoryID: storyID, UserID: callerID}
	likeItem, err := attributevalue.MarshalMap(like)
	if err != nil {
		return false, apperrors.Internal("failed to marshal like", err)
	}
	storyKey := map[string]types.AttributeValue{
		"storyId": &types.AttributeValueMemberS{Value: storyID},
	}
	likeKey := map[string]types.AttributeValue{
		"storyId": &types.AttributeValueMemberS{Value: storyID},
		"userId":  &types.AttributeValueMemberS{Value: callerID},
	}
	one := map[string]types.AttributeValue{
		":one": &types.AttributeValueMemberN{Value: "1"},
	}

	err = ss.Dynamo.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(models.StoryLikesTable),
					Item:                likeItem,
					ConditionExpression: aws.String("attribute_not_exists(storyId) AND attribute_not_exists(userId)"),
				},
			},
			{
				Update: &types.Update{
					TableName:                 aws.String(models.StoriesTable),
					Key:                       storyKey,
					UpdateExpression:          aws.String("ADD likeCount :one"),
					ConditionExpression:       aws.String("attribute_exists(storyId)"),
					ExpressionAttributeValues: one,
				},
			},
		},
	})
	if err == nil {
		return true, nil
	}
	if !IsConditionalCheckFailed(err) {
		return false, apperrors.Internal("failed to store like", err)
	}

	// Like exists: remove row and counter together. The delete condition
	// loses to a concurrent removal, leaving both untouched.
	err = ss.Dynamo.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName:           aws.String(models.StoryLikesTable),
					Key:                 likeKey,
					ConditionExpression: aws.String("attribute_exists(storyId) AND attribute_exists(userId)"),
				},
			},
			{
				Update: &types.Update{
					TableName:                 aws.String(models.StoriesTable),
					Key:                       storyKey,
					UpdateExpression:          aws.String("SET likeCount = likeCount - :one"),
					ConditionExpression:       aws.String("likeCount >= :one"),
					ExpressionAttributeValues: one,
				},
			},
		},
	})
	if err != nil {
		if IsConditionalCheckFailed(err) {
			return false, nil
		}
		return false, apperrors.Internal("failed to remove like", err)
	}
	return false, nil
}

// ListViewers returns who viewed the story and when, newest first. Owner
// only.
func (ss *StoryService) ListViewers(ctx context.Context, callerID, storyID string) ([]models.StoryViewer, error) {
	story, err := ss.getStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != callerID {
		return nil, apperrors.Forbidden("only the owner can list story viewers")
	}

	keyCondition := "storyId = :storyId"
	expressionValues := map[string]types.AttributeValue{
		":storyId": &types.AttributeValueMemberS{Value: storyID},
	}

	items, err := ss.Dynamo.QueryItems(ctx, models.StoryViewsTable, keyCondition, expressionValues, nil, 1000)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch story views", err)
	}

	var views []models.StoryView
	if err := attributevalue.UnmarshalListOfMaps(items, &views); err != nil {
		return nil, apperrors.Internal("failed to parse story views", err)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].ViewedAt > views[j].ViewedAt
	})

	viewers := make([]models.StoryViewer, 0, len(views))
	for _, view := range views {
		profile, err := ss.Users.GetUserProfile(ctx, view.UserID)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		viewers = append(viewers, models.StoryViewer{User: *profile, ViewedAt: view.ViewedAt})
	}
	return viewers, nil
}

// Delete tears down a story: view records, then media, then the row. Owner
// only.
func (ss *StoryService) Delete(ctx context.Context, callerID, storyID string) error {
	story, err := ss.getStory(ctx, storyID)
	if err != nil {
		return err
	}
	if story.UserID != callerID {
		return apperrors.Forbidden("only the owner can delete a story")
	}
	return ss.teardown(ctx, *story)
}

// CleanupExpired removes every story past its expiry, with the same
// teardown as Delete, and returns the count removed. Safe to run
// concurrently with itself and with Delete: a story already gone is
// success, not an error.
func (ss *StoryService) CleanupExpired(ctx context.Context) (int, error) {
	now := time.Now().UnixMilli()
	var expired []models.Story
	err := ss.Dynamo.ScanWithFilter(ctx, models.StoriesTable, func(item map[string]types.AttributeValue) bool {
		return utils.ExtractNumber(item, "expiresAt") <= now
	}, &expired)
	if err != nil {
		return 0, apperrors.Internal("failed to scan for expired stories", err)
	}

	removed := 0
	for _, story := range expired {
		if err := ss.teardown(ctx, story); err != nil {
			log.Printf("⚠️ Failed to clean up story %s: %v", story.StoryID, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Printf("🧹 Cleaned up %d expired stories", removed)
	}
	return removed, nil
}

// teardown releases a story's views and media, then the row itself.
// Each step tolerates the record already being gone.
func (ss *StoryService) teardown(ctx context.Context, story models.Story) error {
	keyCondition := "storyId = :storyId"
	expressionValues := map[string]types.AttributeValue{
		":storyId": &types.AttributeValueMemberS{Value: story.StoryID},
	}

	items, err := ss.Dynamo.QueryItems(ctx, models.StoryViewsTable, keyCondition, expressionValues, nil, 1000)
	if err != nil {
		return apperrors.Internal("failed to fetch story views", err)
	}
	if len(items) > 0 {
		writeRequests := make([]types.WriteRequest, 0, len(items))
		for _, item := range items {
			writeRequests = append(writeRequests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"storyId": item["storyId"],
						"userId":  item["userId"],
					},
				},
			})
		}
		if err := ss.Dynamo.BatchWriteItems(ctx, models.StoryViewsTable, writeRequests); err != nil {
			return apperrors.Internal("failed to remove story views", err)
		}
	}

	likeItems, err := ss.Dynamo.QueryItems(ctx, models.StoryLikesTable, keyCondition, expressionValues, nil, 1000)
	if err != nil {
		return apperrors.Internal("failed to fetch story likes", err)
	}
	if len(likeItems) > 0 {
		writeRequests := make([]types.WriteRequest, 0, len(likeItems))
		for _, item := range likeItems {
			writeRequests = append(writeRequests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"storyId": item["storyId"],
						"userId":  item["userId"],
					},
				},
			})
		}
		if err := ss.Dynamo.BatchWriteItems(ctx, models.StoryLikesTable, writeRequests); err != nil {
			return apperrors.Internal("failed to remove story likes", err)
		}
	}

	if story.MediaKey != "" {
		if err := ss.Media.DeleteObject(ctx, story.MediaKey); err != nil {
			log.Printf("⚠️ Failed to release media for story %s: %v", story.StoryID, err)
		}
	}

	err = ss.Dynamo.DeleteItemConditional(ctx, models.StoriesTable,
		map[string]types.AttributeValue{
			"storyId": &types.AttributeValueMemberS{Value: story.StoryID},
		},
		"attribute_exists(storyId)")
	if err != nil && !IsConditionalCheckFailed(err) {
		return apperrors.Internal("failed to remove story", err)
	}
	return nil
}
