package dynamo

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/marketplace-auth/internal/domain"
)

// Attribute names of the auth_state table. "count" and "value" are DynamoDB
// reserved words, so expressions always go through #placeholders.
const (
	attrKey       = "state_key"
	attrValue     = "value"
	attrCount     = "count"
	attrExpiresAt = "expires_at"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

func numAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// decodeRecord unmarshals a state item and reports whether it is still live at nowUnix.
// DynamoDB deletes expired items lazily, so expiry is always re-checked on read.
func decodeRecord(item map[string]types.AttributeValue, nowUnix int64) (*domain.StateRecord, bool, error) {
	if item == nil {
		return nil, false, nil
	}
	var rec domain.StateRecord
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal state record: %w", err)
	}
	return &rec, rec.ExpiresAt > nowUnix, nil
}
