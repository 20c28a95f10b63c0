package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"pulse_server/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeKeySchema mirrors the table layout so the fake can compose primary
// keys the same way the real tables do
var fakeKeySchema = map[string][]string{
	models.UserProfilesTable:      {"userId"},
	models.ExternalIDLocksTable:   {"externalId"},
	models.ConversationsTable:     {"conversationId"},
	models.ConversationPairsTable: {"pairKey"},
	models.MessagesTable:          {"conversationId", "createdAt"},
	models.ReadReceiptsTable:      {"userId", "messageId"},
	models.StoriesTable:           {"storyId"},
	models.StoryViewsTable:        {"storyId", "userId"},
	models.StoryLikesTable:        {"storyId", "userId"},
	models.FollowsTable:           {"followerId", "followingId"},
}

// fakeDynamo is an in-memory DynamoAPI. It honors the access patterns the
// services use: single-equality key conditions, conditional puts and
// deletes, SET/ADD update expressions and counter floors, so idempotency
// and lost-write behavior can be tested end to end.
type fakeDynamo struct {
	tables map[string]map[string]map[string]types.AttributeValue

	// per-table injected failures
	updateErr map[string]error

	// transactErr fails the next transaction once, then clears
	transactErr error

	// pageSize forces Query to paginate with LastEvaluatedKey
	pageSize int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		tables:    make(map[string]map[string]map[string]types.AttributeValue),
		updateErr: make(map[string]error),
	}
}

func (f *fakeDynamo) table(name string) map[string]map[string]types.AttributeValue {
	if f.tables[name] == nil {
		f.tables[name] = make(map[string]map[string]types.AttributeValue)
	}
	return f.tables[name]
}

func attrString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	default:
		return ""
	}
}

func numOf(av types.AttributeValue) int64 {
	if n, ok := av.(*types.AttributeValueMemberN); ok {
		if v, err := strconv.ParseInt(n.Value, 10, 64); err == nil {
			return v
		}
	}
	return 0
}

func itemKey(tableName string, item map[string]types.AttributeValue) string {
	parts := make([]string, 0, 2)
	for _, attr := range fakeKeySchema[tableName] {
		parts = append(parts, attrString(item[attr]))
	}
	return strings.Join(parts, "|")
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	dup := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		dup[k] = v
	}
	return dup
}

func conditionalCheckFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

// evalCondition handles the expression shapes the services use: row
// existence guards and the numeric counter floor.
func evalCondition(cond string, exists bool, item, values map[string]types.AttributeValue) bool {
	switch {
	case cond == "":
		return true
	case strings.Contains(cond, "attribute_not_exists"):
		return !exists
	case strings.Contains(cond, ">="):
		if !exists {
			return false
		}
		fields := strings.Fields(cond) // attr >= :val
		return numOf(item[fields[0]]) >= numOf(values[fields[2]])
	case strings.Contains(cond, "attribute_exists"):
		return exists
	default:
		return true
	}
}

// applyUpdate handles the SET and ADD expressions the services issue
func applyUpdate(item map[string]types.AttributeValue, expr string, values map[string]types.AttributeValue) {
	switch {
	case strings.HasPrefix(expr, "SET "):
		for _, clause := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
			parts := strings.SplitN(clause, "=", 2)
			attr := strings.TrimSpace(parts[0])
			rhs := strings.TrimSpace(parts[1])
			if strings.Contains(rhs, " - ") {
				operands := strings.SplitN(rhs, " - ", 2)
				current := numOf(item[strings.TrimSpace(operands[0])])
				delta := numOf(values[strings.TrimSpace(operands[1])])
				item[attr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current-delta, 10)}
			} else {
				item[attr] = values[rhs]
			}
		}
	case strings.HasPrefix(expr, "ADD "):
		fields := strings.Fields(expr) // ADD attr :val
		current := numOf(item[fields[1]])
		item[fields[1]] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current+numOf(values[fields[2]]), 10)}
	}
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	item, ok := f.table(*in.TableName)[itemKey(*in.TableName, in.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	tbl := f.table(*in.TableName)
	key := itemKey(*in.TableName, in.Item)
	existing, exists := tbl[key]

	cond := ""
	if in.ConditionExpression != nil {
		cond = *in.ConditionExpression
	}
	if !evalCondition(cond, exists, existing, in.ExpressionAttributeValues) {
		return nil, conditionalCheckFailed()
	}

	tbl[key] = copyItem(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	if err := f.updateErr[*in.TableName]; err != nil {
		return nil, err
	}
	tbl := f.table(*in.TableName)
	key := itemKey(*in.TableName, in.Key)
	item, exists := tbl[key]

	cond := ""
	if in.ConditionExpression != nil {
		cond = *in.ConditionExpression
	}
	if !evalCondition(cond, exists, item, in.ExpressionAttributeValues) {
		return nil, conditionalCheckFailed()
	}

	if !exists {
		item = copyItem(in.Key)
	} else {
		item = copyItem(item)
	}
	applyUpdate(item, *in.UpdateExpression, in.ExpressionAttributeValues)
	tbl[key] = item
	return &dynamodb.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	tbl := f.table(*in.TableName)
	key := itemKey(*in.TableName, in.Key)
	item, exists := tbl[key]

	cond := ""
	if in.ConditionExpression != nil {
		cond = *in.ConditionExpression
	}
	if !evalCondition(cond, exists, item, in.ExpressionAttributeValues) {
		return nil, conditionalCheckFailed()
	}

	delete(tbl, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	fields := strings.Fields(*in.KeyConditionExpression) // attr = :val
	if len(fields) != 3 || fields[1] != "=" {
		return nil, fmt.Errorf("unsupported key condition: %s", *in.KeyConditionExpression)
	}
	attr := fields[0]
	if strings.HasPrefix(attr, "#") {
		attr = in.ExpressionAttributeNames[attr]
	}
	want := attrString(in.ExpressionAttributeValues[fields[2]])

	var matches []map[string]types.AttributeValue
	for _, item := range f.table(*in.TableName) {
		if attrString(item[attr]) == want {
			matches = append(matches, copyItem(item))
		}
	}

	// Sort by the range key when the query pins the partition key
	keys := fakeKeySchema[*in.TableName]
	if len(keys) == 2 && attr == keys[0] {
		sortAttr := keys[1]
		sort.SliceStable(matches, func(i, j int) bool {
			return attrString(matches[i][sortAttr]) < attrString(matches[j][sortAttr])
		})
	}
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
			matches[i], matches[j] = matches[j], matches[i]
		}
	}
	if in.Limit != nil && int(*in.Limit) < len(matches) {
		matches = matches[:*in.Limit]
	}

	if in.ExclusiveStartKey != nil {
		after := itemKey(*in.TableName, in.ExclusiveStartKey)
		for i, m := range matches {
			if itemKey(*in.TableName, m) == after {
				matches = matches[i+1:]
				break
			}
		}
	}
	var lastKey map[string]types.AttributeValue
	if f.pageSize > 0 && len(matches) > f.pageSize {
		matches = matches[:f.pageSize]
		last := matches[len(matches)-1]
		lastKey = make(map[string]types.AttributeValue)
		for _, attr := range fakeKeySchema[*in.TableName] {
			lastKey[attr] = last[attr]
		}
	}
	return &dynamodb.QueryOutput{Items: matches, LastEvaluatedKey: lastKey}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	var items []map[string]types.AttributeValue
	for _, item := range f.table(*in.TableName) {
		items = append(items, copyItem(item))
	}
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (f *fakeDynamo) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	for tableName, requests := range in.RequestItems {
		tbl := f.table(tableName)
		for _, request := range requests {
			if request.DeleteRequest != nil {
				delete(tbl, itemKey(tableName, request.DeleteRequest.Key))
			}
			if request.PutRequest != nil {
				tbl[itemKey(tableName, request.PutRequest.Item)] = copyItem(request.PutRequest.Item)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

// transactTarget flattens a transact item down to the pieces condition
// evaluation needs
func transactTarget(item types.TransactWriteItem) (tableName, key, cond string, values map[string]types.AttributeValue) {
	switch {
	case item.Put != nil:
		tableName = *item.Put.TableName
		key = itemKey(tableName, item.Put.Item)
		if item.Put.ConditionExpression != nil {
			cond = *item.Put.ConditionExpression
		}
		values = item.Put.ExpressionAttributeValues
	case item.Update != nil:
		tableName = *item.Update.TableName
		key = itemKey(tableName, item.Update.Key)
		if item.Update.ConditionExpression != nil {
			cond = *item.Update.ConditionExpression
		}
		values = item.Update.ExpressionAttributeValues
	case item.Delete != nil:
		tableName = *item.Delete.TableName
		key = itemKey(tableName, item.Delete.Key)
		if item.Delete.ConditionExpression != nil {
			cond = *item.Delete.ConditionExpression
		}
		values = item.Delete.ExpressionAttributeValues
	}
	return tableName, key, cond, values
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	if f.transactErr != nil {
		err := f.transactErr
		f.transactErr = nil
		return nil, err
	}

	// Validate every condition before touching state: a transaction either
	// applies completely or not at all
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, item := range in.TransactItems {
		tableName, key, cond, values := transactTarget(item)
		existing, exists := f.table(tableName)[key]
		if !evalCondition(cond, exists, existing, values) {
			reasons[i] = types.CancellationReason{Code: aws.String("ConditionalCheckFailed")}
			failed = true
		} else {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, item := range in.TransactItems {
		tableName, key, _, values := transactTarget(item)
		tbl := f.table(tableName)
		switch {
		case item.Put != nil:
			tbl[key] = copyItem(item.Put.Item)
		case item.Update != nil:
			updated, exists := tbl[key]
			if !exists {
				updated = copyItem(item.Update.Key)
			} else {
				updated = copyItem(updated)
			}
			applyUpdate(updated, *item.Update.UpdateExpression, values)
			tbl[key] = updated
		case item.Delete != nil:
			delete(tbl, key)
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}
