package repository

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"dining-concierge/internal/domain"
)

type fakeDynamo struct {
	getOut        *dynamodb.GetItemOutput
	getErr        error
	putErr        error
	updateErr     error
	deleteErr     error
	lastGetInput  *dynamodb.GetItemInput
	lastPutInput  *dynamodb.PutItemInput
	lastUpdateIn  *dynamodb.UpdateItemInput
	lastDeleteIn  *dynamodb.DeleteItemInput
	getItemCalled int

	// putFn, when set, replaces the canned putErr.
	putFn func(in *dynamodb.PutItemInput) error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	f.getItemCalled++
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	if f.putFn != nil {
		return &dynamodb.PutItemOutput{}, f.putFn(in)
	}
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateIn = in
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteIn = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }

func restaurantItem() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":              s("korean restaurant"),
		"SK":              s("biz-1"),
		"id":              s("yelp-abc"),
		"name":            s("Jongro BBQ"),
		"restaurant_type": s("korean"),
		"address":         s("22 W 32nd St"),
		"zip_code":        s("10001"),
		"display_phone":   s("(212) 473-2233"),
		"rating":          n("4.5"),
		"review_count":    n("1200"),
		"coordinates": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"latitude":  n("40.7477"),
			"longitude": n("-73.9869"),
		}},
	}
}

func TestNewRestaurantStore_Validates(t *testing.T) {
	_, err := NewRestaurantStore(nil, "t")
	require.Error(t, err)
	_, err = NewRestaurantStore(&fakeDynamo{}, " ")
	require.Error(t, err)
}

func TestGetRestaurant_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: restaurantItem()}}
	st, err := NewRestaurantStore(db, "yelp-restaurants")
	require.NoError(t, err)

	r, err := st.GetRestaurant(context.Background(), domain.SearchHit{PK: "korean restaurant", SK: "biz-1"})
	require.NoError(t, err)
	require.Equal(t, domain.Restaurant{
		Name:        "Jongro BBQ",
		Cuisine:     "korean",
		Address:     "22 W 32nd St",
		ZipCode:     "10001",
		Phone:       "(212) 473-2233",
		Rating:      4.5,
		ReviewCount: 1200,
		Coordinates: domain.Coordinates{Latitude: 40.7477, Longitude: -73.9869},
	}, r)

	require.Equal(t, "yelp-restaurants", *db.lastGetInput.TableName)
	require.Equal(t, s("korean restaurant"), db.lastGetInput.Key["PK"])
	require.Equal(t, s("biz-1"), db.lastGetInput.Key["SK"])
}

func TestGetRestaurant_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	st, err := NewRestaurantStore(db, "yelp-restaurants")
	require.NoError(t, err)

	_, err = st.GetRestaurant(context.Background(), domain.SearchHit{PK: "a", SK: "b"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRestaurant_Errors(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	st, err := NewRestaurantStore(db, "yelp-restaurants")
	require.NoError(t, err)

	_, err = st.GetRestaurant(context.Background(), domain.SearchHit{PK: "a", SK: "b"})
	require.ErrorContains(t, err, "GetRestaurant")

	_, err = st.GetRestaurant(context.Background(), domain.SearchHit{PK: "a"})
	require.ErrorContains(t, err, "required")
}

func newTestLedger(t *testing.T, db *fakeDynamo) *Ledger {
	t.Helper()
	l, err := NewLedger(db, "ledger", time.Hour, 10*time.Minute)
	require.NoError(t, err)
	l.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return l
}

func TestNewLedger_Validates(t *testing.T) {
	_, err := NewLedger(nil, "ledger", 0, 0)
	require.Error(t, err)
	_, err = NewLedger(&fakeDynamo{}, "", 0, 0)
	require.Error(t, err)
	_, err = NewLedger(&fakeDynamo{}, "ledger", time.Hour, 2*time.Hour)
	require.ErrorContains(t, err, "lease")

	l, err := NewLedger(&fakeDynamo{}, "ledger", 0, 0)
	require.NoError(t, err)
	require.Equal(t, defaultLedgerTTL, l.ttl)
	require.Equal(t, defaultLedgerLease, l.lease)
}

func TestClaim_NewRequest(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)

	claimed, _, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.True(t, claimed)

	in := db.lastPutInput
	require.Equal(t, claimCondition, *in.ConditionExpression)
	require.Equal(t, "status", in.ExpressionAttributeNames["#status"])
	require.Equal(t, s("processing"), in.ExpressionAttributeValues[":processing"])
	require.Equal(t, n("1700000000"), in.ExpressionAttributeValues[":now"])
	require.Equal(t, s("REQ#req-1"), in.Item["PK"])
	require.Equal(t, s("processing"), in.Item["status"])
	require.Equal(t, n("1700000600"), in.Item["leaseUntil"])
	require.Equal(t, n("1700003600"), in.Item["ttl"])
}

// claimTable evaluates claimCondition against a single stored ledger item,
// the way DynamoDB would for the conditional put.
func claimTable(t *testing.T, stored map[string]types.AttributeValue) func(in *dynamodb.PutItemInput) error {
	return func(in *dynamodb.PutItemInput) error {
		require.Equal(t, claimCondition, *in.ConditionExpression)
		if stored == nil {
			stored = in.Item
			return nil
		}
		now, err := int64Attr(in.ExpressionAttributeValues, ":now")
		require.NoError(t, err)
		status, _ := strAttr(stored, "status")
		lease, leaseErr := int64Attr(stored, "leaseUntil")
		if status == string(domain.LedgerStatusProcessing) && (leaseErr != nil || lease < now) {
			stored = in.Item
			return nil
		}
		return &types.ConditionalCheckFailedException{Item: stored}
	}
}

func ledgerRow(status string, leaseUntil int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":         s("REQ#req-1"),
		"SK":         s(skLedger),
		"status":     s(status),
		"leaseUntil": n(strconv.FormatInt(leaseUntil, 10)),
	}
}

func TestClaim_TakesOverExpiredClaim(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)
	sixHoursAgo := l.now().Add(-6 * time.Hour).Unix()
	db.putFn = claimTable(t, ledgerRow("processing", sixHoursAgo))

	claimed, _, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, n("1700000600"), db.lastPutInput.Item["leaseUntil"])
}

func TestClaim_TakesOverClaimWithoutLease(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)
	row := ledgerRow("processing", 0)
	delete(row, "leaseUntil")
	db.putFn = claimTable(t, row)

	claimed, _, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestClaim_LiveClaimIsNotTakenOver(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)
	db.putFn = claimTable(t, ledgerRow("processing", l.now().Add(time.Minute).Unix()))

	claimed, status, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, domain.LedgerStatusProcessing, status)
}

func TestClaim_DeliveredIsNeverTakenOver(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)
	db.putFn = claimTable(t, ledgerRow("delivered", l.now().Add(-time.Hour).Unix()))

	claimed, status, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, domain.LedgerStatusDelivered, status)
}

func TestClaim_ExistingReturnsStatusFromConditionFailure(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{
		Message: strPtr("The conditional request failed"),
		Item: map[string]types.AttributeValue{
			"PK":     s("REQ#req-1"),
			"SK":     s(skLedger),
			"status": s("delivered"),
		},
	}}
	l := newTestLedger(t, db)

	claimed, status, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, domain.LedgerStatusDelivered, status)
	require.Zero(t, db.getItemCalled)
}

func TestClaim_ExistingFallsBackToConsistentRead(t *testing.T) {
	db := &fakeDynamo{
		putErr: &types.ConditionalCheckFailedException{},
		getOut: &dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"PK":     s("REQ#req-1"),
			"SK":     s(skLedger),
			"status": s("processing"),
		}},
	}
	l := newTestLedger(t, db)

	claimed, status, err := l.Claim(context.Background(), "req-1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.Equal(t, domain.LedgerStatusProcessing, status)
	require.True(t, *db.lastGetInput.ConsistentRead)
}

func TestClaim_Errors(t *testing.T) {
	l := newTestLedger(t, &fakeDynamo{putErr: errors.New("throttled")})
	_, _, err := l.Claim(context.Background(), "req-1")
	require.ErrorContains(t, err, "Claim")

	_, _, err = l.Claim(context.Background(), " ")
	require.ErrorContains(t, err, "required")
}

func TestMarkDelivered(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)

	require.NoError(t, l.MarkDelivered(context.Background(), "req-1", "ses-1"))
	in := db.lastUpdateIn
	require.Equal(t, s("REQ#req-1"), in.Key["PK"])
	require.Equal(t, "status", in.ExpressionAttributeNames["#status"])
	require.Equal(t, s("delivered"), in.ExpressionAttributeValues[":delivered"])
	require.Equal(t, s("ses-1"), in.ExpressionAttributeValues[":nid"])

	db.updateErr = errors.New("boom")
	require.ErrorContains(t, l.MarkDelivered(context.Background(), "req-1", "ses-1"), "MarkDelivered")
}

func TestRelease(t *testing.T) {
	db := &fakeDynamo{}
	l := newTestLedger(t, db)

	require.NoError(t, l.Release(context.Background(), "req-1"))
	require.Equal(t, "#status = :processing", *db.lastDeleteIn.ConditionExpression)

	db.deleteErr = &types.ConditionalCheckFailedException{}
	require.NoError(t, l.Release(context.Background(), "req-1"), "a delivered entry is left in place")

	db.deleteErr = errors.New("boom")
	require.ErrorContains(t, l.Release(context.Background(), "req-1"), "Release")
}

func strPtr(v string) *string { return &v }
