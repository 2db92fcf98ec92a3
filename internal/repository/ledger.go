package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"dining-concierge/internal/domain"
)

const (
	skLedger           = "LEDGER#"
	defaultLedgerTTL   = 7 * 24 * time.Hour
	defaultLedgerLease = 15 * time.Minute

	// A new id, or a processing claim whose lease ran out because its worker
	// died before releasing it.
	claimCondition = "attribute_not_exists(PK) OR (#status = :processing AND (attribute_not_exists(leaseUntil) OR leaseUntil < :now))"
)

// status is a DynamoDB reserved word.
var statusAttrNames = map[string]string{"#status": "status"}

// Ledger is the request dedup table. Each queued request id owns one item
// that moves from processing to delivered, or is deleted when processing fails.
// A processing claim holds a lease; once it lapses another delivery of the
// same message may take the claim over.
type Ledger struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	lease     time.Duration
	now       func() time.Time
}

// NewLedger creates a Ledger over tableName. ttl bounds how long an entry is
// kept; lease bounds how long a processing claim blocks redeliveries and
// should be at least the worker's function timeout. Non-positive values fall
// back to 7 days and 15 minutes.
func NewLedger(api dynamodbAPI, tableName string, ttl, lease time.Duration) (*Ledger, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultLedgerTTL
	}
	if lease <= 0 {
		lease = defaultLedgerLease
	}
	if lease >= ttl {
		return nil, errors.New("repository: ledger lease must be shorter than its ttl")
	}
	return &Ledger{api: api, tableName: tableName, ttl: ttl, lease: lease, now: time.Now}, nil
}

// reqPK returns the partition key for a request id.
func reqPK(requestID string) string {
	return "REQ#" + requestID
}

// Claim records requestID as processing. An expired processing claim is
// taken over. Otherwise, when the id is already present, it returns
// claimed=false and the stored status.
func (l *Ledger) Claim(ctx context.Context, requestID string) (bool, domain.LedgerStatus, error) {
	if strings.TrimSpace(requestID) == "" {
		return false, "", errors.New("repository: Claim: request id is required")
	}
	entry := l.newEntry(requestID, domain.LedgerStatusProcessing)
	_, err := l.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(l.tableName),
		Item:                     ledgerItem(entry),
		ConditionExpression:      aws.String(claimCondition),
		ExpressionAttributeNames: statusAttrNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(domain.LedgerStatusProcessing)},
			":now":        &types.AttributeValueMemberN{Value: strconv.FormatInt(l.now().Unix(), 10)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err == nil {
		return true, "", nil
	}

	var ccf *types.ConditionalCheckFailedException
	if !errors.As(err, &ccf) {
		return false, "", fmt.Errorf("repository: Claim: %w", err)
	}
	if len(ccf.Item) > 0 {
		existing, decErr := itemToLedgerEntry(ccf.Item)
		if decErr == nil {
			return false, existing.Status, nil
		}
	}
	existing, err := l.get(ctx, requestID)
	if err != nil {
		return false, "", fmt.Errorf("repository: Claim: %w", err)
	}
	return false, existing.Status, nil
}

// MarkDelivered moves a claimed request to delivered and records the
// notification id.
func (l *Ledger) MarkDelivered(ctx context.Context, requestID, notificationID string) error {
	_, err := l.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(l.tableName),
		Key:                      keyOf(reqPK(requestID), skLedger),
		UpdateExpression:         aws.String("SET #status = :delivered, notificationId = :nid, updatedAt = :now"),
		ConditionExpression:      aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: statusAttrNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delivered": &types.AttributeValueMemberS{Value: string(domain.LedgerStatusDelivered)},
			":nid":       &types.AttributeValueMemberS{Value: notificationID},
			":now":       &types.AttributeValueMemberS{Value: l.now().UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: MarkDelivered: %w", err)
	}
	return nil
}

// Release drops a processing claim so a redelivered message can try again.
// Delivered entries are never released.
func (l *Ledger) Release(ctx context.Context, requestID string) error {
	_, err := l.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(l.tableName),
		Key:                      keyOf(reqPK(requestID), skLedger),
		ConditionExpression:      aws.String("#status = :processing"),
		ExpressionAttributeNames: statusAttrNames,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":processing": &types.AttributeValueMemberS{Value: string(domain.LedgerStatusProcessing)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil
		}
		return fmt.Errorf("repository: Release: %w", err)
	}
	return nil
}

func (l *Ledger) get(ctx context.Context, requestID string) (domain.LedgerEntry, error) {
	out, err := l.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            keyOf(reqPK(requestID), skLedger),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.LedgerEntry{}, ErrNotFound
	}
	return itemToLedgerEntry(out.Item)
}

func (l *Ledger) newEntry(requestID string, status domain.LedgerStatus) domain.LedgerEntry {
	now := l.now().UTC()
	return domain.LedgerEntry{
		PK:         reqPK(requestID),
		SK:         skLedger,
		RequestID:  requestID,
		Status:     status,
		UpdatedAt:  now.Format(time.RFC3339),
		LeaseUntil: now.Add(l.lease).Unix(),
		TTL:        now.Add(l.ttl).Unix(),
	}
}

func ledgerItem(e domain.LedgerEntry) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: e.PK},
		"SK":         &types.AttributeValueMemberS{Value: e.SK},
		"requestId":  &types.AttributeValueMemberS{Value: e.RequestID},
		"status":     &types.AttributeValueMemberS{Value: string(e.Status)},
		"updatedAt":  &types.AttributeValueMemberS{Value: e.UpdatedAt},
		"leaseUntil": &types.AttributeValueMemberN{Value: strconv.FormatInt(e.LeaseUntil, 10)},
		"ttl":        &types.AttributeValueMemberN{Value: strconv.FormatInt(e.TTL, 10)},
	}
	if e.NotificationID != "" {
		item["notificationId"] = &types.AttributeValueMemberS{Value: e.NotificationID}
	}
	return item
}

func itemToLedgerEntry(item map[string]types.AttributeValue) (domain.LedgerEntry, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	status, err := strAttr(item, "status")
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	requestID, _ := strAttr(item, "requestId") // allow empty
	nid, _ := strAttr(item, "notificationId")  // allow empty
	updatedAt, _ := strAttr(item, "updatedAt") // allow empty
	ttl, _ := int64Attr(item, "ttl")           // allow empty
	lease, _ := int64Attr(item, "leaseUntil")  // allow empty

	return domain.LedgerEntry{
		PK:             pk,
		SK:             skLedger,
		RequestID:      requestID,
		Status:         domain.LedgerStatus(status),
		NotificationID: nid,
		UpdatedAt:      updatedAt,
		LeaseUntil:     lease,
		TTL:            ttl,
	}, nil
}
