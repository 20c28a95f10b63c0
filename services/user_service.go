package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"pulse_server/apperrors"
	"pulse_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// UserProfileService is the identity resolver: it maps the verified external
// principal to the internal user record. Every other service starts from a
// caller resolved here.
type UserProfileService struct {
	Dynamo *DynamoService
}

// ResolveByExternalID maps a verified external auth id to the internal
// profile. No side effects; fails Unauthenticated when the principal is
// missing or has no profile yet.
func (ups *UserProfileService) ResolveByExternalID(ctx context.Context, externalID string) (*models.UserProfile, error) {
	if externalID == "" {
		return nil, apperrors.Unauthorized("no verified principal")
	}

	keyCondition := "externalId = :externalId"
	expressionValues := map[string]types.AttributeValue{
		":externalId": &types.AttributeValueMemberS{Value: externalID},
	}

	items, err := ups.Dynamo.QueryItemsWithIndex(ctx, models.UserProfilesTable, models.ExternalIDIndex, keyCondition, expressionValues, nil, 1)
	if err != nil {
		return nil, apperrors.Internal("failed to resolve caller", err)
	}
	if len(items) == 0 {
		return nil, apperrors.Unauthorized("no profile for principal")
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(items[0], &profile); err != nil {
		return nil, apperrors.Internal("failed to parse caller profile", err)
	}
	return &profile, nil
}

// EnsureUser creates the profile row on first sign-in and returns the
// existing one on every call after that.
func (ups *UserProfileService) EnsureUser(ctx context.Context, externalID, username, fullName, image string) (*models.UserProfile, error) {
	if externalID == "" {
		return nil, apperrors.Unauthorized("no verified principal")
	}
	if username == "" {
		return nil, apperrors.InvalidArg("username is required")
	}

	existing, err := ups.ResolveByExternalID(ctx, externalID)
	if err == nil {
		return existing, nil
	}
	if apperrors.CodeOf(err) != apperrors.CodeUnauthenticated {
		return nil, err
	}

	profile := models.UserProfile{
		UserID:     uuid.New().String(),
		ExternalID: externalID,
		Username:   username,
		FullName:   fullName,
		Image:      image,
	}

	lockItem, err := attributevalue.MarshalMap(models.ExternalIDLock{ExternalID: externalID, UserID: profile.UserID})
	if err != nil {
		return nil, apperrors.Internal("failed to marshal profile lock", err)
	}
	profileItem, err := attributevalue.MarshalMap(profile)
	if err != nil {
		return nil, apperrors.Internal("failed to marshal profile", err)
	}

	// The lock row is written with attribute_not_exists in the same
	// transaction as the profile, so concurrent first sign-ins for one
	// principal collapse to a single profile.
	err = ups.Dynamo.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(models.ExternalIDLocksTable),
					Item:                lockItem,
					ConditionExpression: aws.String("attribute_not_exists(externalId)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(models.UserProfilesTable),
					Item:      profileItem,
				},
			},
		},
	})
	if err == nil {
		log.Printf("✅ Created profile %s for new principal", profile.UserID)
		return &profile, nil
	}
	if !IsConditionalCheckFailed(err) {
		return nil, apperrors.Internal("failed to create profile", err)
	}

	// Lost the lock: a concurrent first sign-in created the profile
	return ups.ResolveByExternalID(ctx, externalID)
}

// GetUserProfile retrieves a user profile by internal id
func (ups *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}

	item, err := ups.Dynamo.GetItem(ctx, models.UserProfilesTable, key)
	if err != nil {
		return nil, apperrors.Internal("failed to fetch profile", err)
	}
	if item == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("user %s not found", userID))
	}

	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return nil, apperrors.Internal("failed to parse profile", err)
	}
	return &profile, nil
}

// GetProfilesByIDs fetches profiles for a set of user ids, skipping ids that
// no longer resolve
func (ups *UserProfileService) GetProfilesByIDs(ctx context.Context, userIDs []string) (map[string]models.UserProfile, error) {
	profiles := make(map[string]models.UserProfile, len(userIDs))
	for _, id := range userIDs {
		if _, done := profiles[id]; done {
			continue
		}
		profile, err := ups.GetUserProfile(ctx, id)
		if err != nil {
			if apperrors.CodeOf(err) == apperrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		profiles[id] = *profile
	}
	return profiles, nil
}

// SearchUsers finds users by username/full-name substring, excluding the
// caller, capped at 20 results
func (ups *UserProfileService) SearchUsers(ctx context.Context, callerID, term string) ([]models.UserProfile, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if len(term) < 2 {
		return []models.UserProfile{}, nil
	}

	var profiles []models.UserProfile
	err := ups.Dynamo.ScanWithFilter(ctx, models.UserProfilesTable, nil, &profiles)
	if err != nil {
		return nil, apperrors.Internal("failed to search users", err)
	}

	matches := make([]models.UserProfile, 0)
	for _, p := range profiles {
		if p.UserID == callerID {
			continue
		}
		if strings.Contains(strings.ToLower(p.Username), term) || strings.Contains(strings.ToLower(p.FullName), term) {
			matches = append(matches, p)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Username < matches[j].Username })
	if len(matches) > 20 {
		matches = matches[:20]
	}
	return matches, nil
}
