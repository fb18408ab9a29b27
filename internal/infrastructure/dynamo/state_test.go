package dynamo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/marketplace-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockItemAPI struct{ mock.Mock }

func (m *mockItemAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}
func (m *mockItemAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}
func (m *mockItemAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.UpdateItemOutput)
	return out, args.Error(1)
}
func (m *mockItemAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

var (
	fixedNow     = time.Unix(1_700_000_000, 0)
	errCondition = &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
)

func newTestStore(api *mockItemAPI) *StateStore {
	s := NewStateStore(api, "auth_state")
	s.now = func() time.Time { return fixedNow }
	return s
}

func updated(n int64) *dynamodb.UpdateItemOutput {
	return &dynamodb.UpdateItemOutput{Attributes: map[string]types.AttributeValue{attrCount: numAttr(n)}}
}

func stored(t *testing.T, rec domain.StateRecord) *dynamodb.GetItemOutput {
	t.Helper()
	item, err := attributevalue.MarshalMap(&rec)
	require.NoError(t, err)
	return &dynamodb.GetItemOutput{Item: item}
}

func TestIncrBelow_LiveCounterBelowLimit(t *testing.T) {
	api := &mockItemAPI{}
	api.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
		lim, ok := in.ExpressionAttributeValues[":limit"].(*types.AttributeValueMemberN)
		exp, ok2 := in.ExpressionAttributeValues[":exp"].(*types.AttributeValueMemberN)
		return ok && ok2 && lim.Value == "2" && exp.Value == "1700003600" &&
			aws.ToString(in.ConditionExpression) == "attribute_exists(#c) AND #e > :now AND #c < :limit"
	})).Return(updated(2), nil).Once()

	n, err := newTestStore(api).IncrBelow(context.Background(), "otp_request_count:a@b.com", 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	api.AssertExpectations(t)
	api.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
}

func TestIncrBelow_AbsentOrExpiredStartsAtOne(t *testing.T) {
	api := &mockItemAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCondition).Once()
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		var rec domain.StateRecord
		if err := attributevalue.UnmarshalMap(in.Item, &rec); err != nil {
			return false
		}
		return rec.Count == 1 && rec.ExpiresAt == fixedNow.Add(5*time.Minute).Unix() &&
			aws.ToString(in.ConditionExpression) == "attribute_not_exists(#k) OR #e <= :now"
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	n, err := newTestStore(api).IncrBelow(context.Background(), "otp_attempts:a@b.com", 2, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	api.AssertExpectations(t)
}

func TestIncrBelow_AtLimit(t *testing.T) {
	api := &mockItemAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCondition).Once()
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, errCondition).Once()
	api.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return aws.ToBool(in.ConsistentRead)
	})).Return(stored(t, domain.StateRecord{Key: "k", Count: 2, ExpiresAt: fixedNow.Unix() + 60}), nil).Once()

	n, err := newTestStore(api).IncrBelow(context.Background(), "k", 2, time.Hour)
	assert.ErrorIs(t, err, domain.ErrLimitReached)
	assert.Equal(t, int64(2), n)
	api.AssertExpectations(t)
}

func TestIncrBelow_RetriesAfterInterleavedWriter(t *testing.T) {
	api := &mockItemAPI{}
	// Another writer created the counter between our update and put.
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCondition).Once()
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, errCondition).Once()
	api.On("GetItem", mock.Anything, mock.Anything).
		Return(stored(t, domain.StateRecord{Key: "k", Count: 1, ExpiresAt: fixedNow.Unix() + 60}), nil).Once()
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(updated(2), nil).Once()

	n, err := newTestStore(api).IncrBelow(context.Background(), "k", 2, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	api.AssertExpectations(t)
	api.AssertNumberOfCalls(t, "UpdateItem", 2)
}

func TestIncrBelow_GivesUp(t *testing.T) {
	api := &mockItemAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errCondition)
	api.On("PutItem", mock.Anything, mock.Anything).Return(nil, errCondition)
	api.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	_, err := newTestStore(api).IncrBelow(context.Background(), "k", 2, time.Hour)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrLimitReached))
	assert.Contains(t, err.Error(), "gave up")
	api.AssertNumberOfCalls(t, "UpdateItem", maxIncrAttempts)
}

func TestIncrBelow_StoreFailure(t *testing.T) {
	api := &mockItemAPI{}
	api.On("UpdateItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := newTestStore(api).IncrBelow(context.Background(), "k", 2, time.Hour)
	assert.EqualError(t, err, "throttled")
	api.AssertNotCalled(t, "PutItem", mock.Anything, mock.Anything)
}

func TestGet_ExpiredIsNotFound(t *testing.T) {
	api := &mockItemAPI{}
	api.On("GetItem", mock.Anything, mock.Anything).
		Return(stored(t, domain.StateRecord{Key: "otp:a@b.com", Value: "482913", ExpiresAt: fixedNow.Unix()}), nil)

	_, err := newTestStore(api).Get(context.Background(), "otp:a@b.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDel_DeletesEachKey(t *testing.T) {
	api := &mockItemAPI{}
	api.On("DeleteItem", mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)

	require.NoError(t, newTestStore(api).Del(context.Background(), "otp:a@b.com", "otp_attempts:a@b.com"))
	api.AssertNumberOfCalls(t, "DeleteItem", 2)
}
