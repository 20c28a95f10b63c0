package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the minimal DynamoDB client surface the services need.
// Defined here for testability.
type DynamoAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoService struct {
	Client DynamoAPI
}

// InitializeDynamoDBClient initializes the DynamoDB client
func InitializeDynamoDBClient() *dynamodb.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return dynamodb.NewFromConfig(cfg)
}

// QueryItems queries items from DynamoDB using a KeyConditionExpression
func (ds *DynamoService) QueryItems(
	ctx context.Context,
	tableName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
	limit int32,
) ([]map[string]types.AttributeValue, error) {
	output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &tableName,
		KeyConditionExpression:    &keyConditionExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		Limit:                     &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query items from table '%s': %w", tableName, err)
	}

	return output.Items, nil
}

// QueryItemsWithIndex queries items from DynamoDB using a Global Secondary Index (GSI)
func (ds *DynamoService) QueryItemsWithIndex(
	ctx context.Context,
	tableName string,
	indexName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
	limit int32,
) ([]map[string]types.AttributeValue, error) {
	output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &tableName,
		IndexName:                 &indexName,
		KeyConditionExpression:    &keyConditionExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		Limit:                     &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query GSI '%s': %w", indexName, err)
	}
	return output.Items, nil
}

// QueryItemsWithOptions queries DynamoDB with sorting and limit options.
// latestFirst=true returns newest items first (descending sort key order).
func (ds *DynamoService) QueryItemsWithOptions(
	ctx context.Context,
	tableName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
	limit int32,
	latestFirst bool,
) ([]map[string]types.AttributeValue, error) {
	scanIndexForward := !latestFirst

	output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 &tableName,
		KeyConditionExpression:    &keyConditionExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		Limit:                     &limit,
		ScanIndexForward:          &scanIndexForward,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query table '%s': %w", tableName, err)
	}
	return output.Items, nil
}

// QueryAllItems pages through every item matching the key condition with
// LastEvaluatedKey, so result sets are never silently truncated at a page
// boundary.
func (ds *DynamoService) QueryAllItems(
	ctx context.Context,
	tableName string,
	keyConditionExpression string,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		output, err := ds.Client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 &tableName,
			KeyConditionExpression:    &keyConditionExpression,
			ExpressionAttributeValues: expressionAttributeValues,
			ExpressionAttributeNames:  expressionAttributeNames,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query items from table '%s': %w", tableName, err)
		}
		items = append(items, output.Items...)
		if len(output.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = output.LastEvaluatedKey
	}
}

// GetItem retrieves an item from DynamoDB. Returns (nil, nil) when the item
// does not exist so callers can map absence to their own error kind.
func (ds *DynamoService) GetItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	output, err := ds.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &tableName,
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", tableName, err)
	}
	if len(output.Item) == 0 {
		return nil, nil
	}
	return output.Item, nil
}

// PutItem inserts or replaces an item
func (ds *DynamoService) PutItem(ctx context.Context, tableName string, item interface{}) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &tableName,
		Item:      marshaledItem,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// PutItemConditional inserts an item guarded by a ConditionExpression.
// The error is wrapped with %w so IsConditionalCheckFailed still sees the
// typed check failure.
func (ds *DynamoService) PutItemConditional(ctx context.Context, tableName string, item interface{}, conditionExpression string) error {
	marshaledItem, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = ds.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &tableName,
		Item:                marshaledItem,
		ConditionExpression: aws.String(conditionExpression),
	})
	if err != nil {
		return fmt.Errorf("failed to put item in table '%s': %w", tableName, err)
	}
	return nil
}

// UpdateItem applies an update expression and returns the new attributes
func (ds *DynamoService) UpdateItem(
	ctx context.Context,
	tableName string,
	updateExpression string,
	key map[string]types.AttributeValue,
	expressionAttributeValues map[string]types.AttributeValue,
	expressionAttributeNames map[string]string,
) (map[string]types.AttributeValue, error) {
	if len(key) == 0 {
		return nil, errors.New("update failed: key cannot be empty")
	}
	if updateExpression == "" {
		return nil, errors.New("update failed: updateExpression cannot be empty")
	}

	output, err := ds.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &tableName,
		Key:                       key,
		UpdateExpression:          &updateExpression,
		ExpressionAttributeValues: expressionAttributeValues,
		ExpressionAttributeNames:  expressionAttributeNames,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item in table '%s': %w", tableName, err)
	}

	if output.Attributes == nil {
		return map[string]types.AttributeValue{}, nil
	}
	return output.Attributes, nil
}

// DeleteItem removes an item from DynamoDB
func (ds *DynamoService) DeleteItem(ctx context.Context, tableName string, key map[string]types.AttributeValue) error {
	_, err := ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &tableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	return nil
}

// DeleteItemConditional removes an item guarded by a ConditionExpression
func (ds *DynamoService) DeleteItemConditional(ctx context.Context, tableName string, key map[string]types.AttributeValue, conditionExpression string) error {
	_, err := ds.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &tableName,
		Key:                 key,
		ConditionExpression: aws.String(conditionExpression),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item from table '%s': %w", tableName, err)
	}
	return nil
}

// TransactWriteItems executes a write transaction as given
func (ds *DynamoService) TransactWriteItems(ctx context.Context, input *dynamodb.TransactWriteItemsInput) error {
	_, err := ds.Client.TransactWriteItems(ctx, input)
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// ScanWithFilter performs a full scan of a table and applies the filterFunc
// callback to each raw item before unmarshalling into result.
func (ds *DynamoService) ScanWithFilter(
	ctx context.Context,
	tableName string,
	filterFunc func(map[string]types.AttributeValue) bool,
	result interface{},
) error {
	output, err := ds.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName: &tableName,
	})
	if err != nil {
		return fmt.Errorf("failed to scan table '%s': %w", tableName, err)
	}

	var filteredItems []map[string]types.AttributeValue
	for _, item := range output.Items {
		if filterFunc == nil || filterFunc(item) {
			filteredItems = append(filteredItems, item)
		}
	}

	if err := attributevalue.UnmarshalListOfMaps(filteredItems, result); err != nil {
		return fmt.Errorf("failed to unmarshal scan result: %w", err)
	}
	return nil
}

// BatchWriteItems writes multiple items to DynamoDB in batches
func (ds *DynamoService) BatchWriteItems(
	ctx context.Context,
	tableName string,
	writeRequests []types.WriteRequest,
) error {
	const maxBatchSize = 25

	for i := 0; i < len(writeRequests); i += maxBatchSize {
		end := i + maxBatchSize
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		batchInput := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				tableName: writeRequests[i:end],
			},
		}

		_, err := ds.Client.BatchWriteItem(ctx, batchInput)
		if err != nil {
			return fmt.Errorf("failed to batch write items to table '%s': %w", tableName, err)
		}
	}

	return nil
}

// IsConditionalCheckFailed reports whether err is a lost conditional write,
// either directly or as a cancellation reason inside a transaction. The
// idempotent paths (receipts, views, likes, pair locks) turn this into a
// no-op instead of an error.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tc *types.TransactionCanceledException
	if errors.As(err, &tc) {
		for _, reason := range tc.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
