package services

import (
	"context"
	"fmt"

	"pulse_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// FollowService is the read-only follow-graph collaborator consumed by the
// story feed. Writes to the graph belong to the social surface, not here.
type FollowService struct {
	Dynamo *DynamoService
}

// FollowingOf returns the ids of every user the given user follows
func (fs *FollowService) FollowingOf(ctx context.Context, userID string) ([]string, error) {
	keyCondition := "followerId = :followerId"
	expressionValues := map[string]types.AttributeValue{
		":followerId": &types.AttributeValueMemberS{Value: userID},
	}

	items, err := fs.Dynamo.QueryItems(ctx, models.FollowsTable, keyCondition, expressionValues, nil, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch follow edges: %w", err)
	}

	var follows []models.Follow
	if err := attributevalue.UnmarshalListOfMaps(items, &follows); err != nil {
		return nil, fmt.Errorf("failed to parse follow edges: %w", err)
	}

	followingIDs := make([]string, 0, len(follows))
	for _, f := range follows {
		followingIDs = append(followingIDs, f.FollowingID)
	}
	return followingIDs, nil
}
