package utils

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ExtractString safely extracts a string from a DynamoDB attribute map
func ExtractString(item map[string]types.AttributeValue, field string) string {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberS); ok {
			return v.Value
		}
	}
	return ""
}

// ExtractNumber safely extracts a numeric attribute as int64
func ExtractNumber(item map[string]types.AttributeValue, field string) int64 {
	if attr, ok := item[field]; ok {
		if v, ok := attr.(*types.AttributeValueMemberN); ok {
			if n, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

// ExtractStringList safely extracts a list-of-strings attribute
func ExtractStringList(item map[string]types.AttributeValue, field string) []string {
	attr, ok := item[field]
	if !ok {
		return nil
	}
	list, ok := attr.(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list.Value))
	for _, elem := range list.Value {
		if s, ok := elem.(*types.AttributeValueMemberS); ok {
			out = append(out, s.Value)
		}
	}
	return out
}
