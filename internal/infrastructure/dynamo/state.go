package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/marketplace-auth/internal/domain"
)

const maxIncrAttempts = 5

// ItemAPI is the part of *dynamodb.Client the state store calls.
type ItemAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// StateStore is an expiring key-value store over a single DynamoDB table.
// PK: state_key. Each item expires independently through the expires_at TTL attribute.
type StateStore struct {
	client    ItemAPI
	tableName string
	now       func() time.Time
}

func NewStateStore(client ItemAPI, tableName string) *StateStore {
	return &StateStore{client: client, tableName: tableName, now: time.Now}
}

func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	rec, err := s.live(ctx, key, s.now().Unix())
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

func (s *StateStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(&domain.StateRecord{
		Key:       key,
		Value:     value,
		ExpiresAt: s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal state record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	return err
}

func (s *StateStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       strKey(attrKey, k),
		})
		if err != nil {
			return fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return nil
}

// IncrBelow atomically increments the counter at key while it is below limit and
// re-arms its expiry to ttl. An absent or expired counter restarts at 1. When the live
// counter is already at limit it is returned unchanged together with domain.ErrLimitReached.
//
// A conditional update covers the live-counter case and a conditional put covers the
// fresh-counter case. If both conditions fail the item is re-read: at the limit we stop,
// otherwise another writer interleaved and we go around again.
func (s *StateStore) IncrBelow(ctx context.Context, key string, limit int64, ttl time.Duration) (int64, error) {
	for attempt := 0; attempt < maxIncrAttempts; attempt++ {
		now := s.now()

		n, err := s.bump(ctx, key, limit, now, ttl)
		if err == nil {
			return n, nil
		}
		if !isConditionFailed(err) {
			return 0, err
		}

		err = s.start(ctx, key, now, ttl)
		if err == nil {
			return 1, nil
		}
		if !isConditionFailed(err) {
			return 0, err
		}

		rec, err := s.live(ctx, key, now.Unix())
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
		if rec != nil && rec.Count >= limit {
			return rec.Count, domain.ErrLimitReached
		}
	}
	return 0, fmt.Errorf("increment %s: gave up after %d attempts", key, maxIncrAttempts)
}

func (s *StateStore) bump(ctx context.Context, key string, limit int64, now time.Time, ttl time.Duration) (int64, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 strKey(attrKey, key),
		UpdateExpression:    aws.String("SET #c = #c + :one, #e = :exp"),
		ConditionExpression: aws.String("attribute_exists(#c) AND #e > :now AND #c < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#c": attrCount,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":   numAttr(1),
			":exp":   numAttr(now.Add(ttl).Unix()),
			":now":   numAttr(now.Unix()),
			":limit": numAttr(limit),
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, err
	}
	var n int64
	if err := attributevalue.Unmarshal(out.Attributes[attrCount], &n); err != nil {
		return 0, fmt.Errorf("unmarshal counter: %w", err)
	}
	return n, nil
}

func (s *StateStore) start(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	item, err := attributevalue.MarshalMap(&domain.StateRecord{
		Key:       key,
		Count:     1,
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal state record: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#k) OR #e <= :now"),
		ExpressionAttributeNames: map[string]string{
			"#k": attrKey,
			"#e": attrExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": numAttr(now.Unix()),
		},
	})
	return err
}

func (s *StateStore) live(ctx context.Context, key string, nowUnix int64) (*domain.StateRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            strKey(attrKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	rec, ok, err := decodeRecord(out.Item, nowUnix)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("state %s: %w", key, domain.ErrNotFound)
	}
	return rec, nil
}
