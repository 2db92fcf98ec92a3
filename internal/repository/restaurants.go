package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"dining-concierge/internal/domain"
)

// Internal identifier attributes that never leave the repository.
var internalAttributes = []string{"PK", "SK", "id"}

// RestaurantStore reads restaurant records populated by the ingestion job.
// It never writes to the table.
type RestaurantStore struct {
	api       dynamodbAPI
	tableName string
}

func NewRestaurantStore(api dynamodbAPI, tableName string) (*RestaurantStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &RestaurantStore{api: api, tableName: tableName}, nil
}

// GetRestaurant fetches the record addressed by a search hit. A missing item
// yields ErrNotFound.
func (s *RestaurantStore) GetRestaurant(ctx context.Context, hit domain.SearchHit) (domain.Restaurant, error) {
	if hit.PK == "" || hit.SK == "" {
		return domain.Restaurant{}, errors.New("repository: GetRestaurant: PK and SK are required")
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       keyOf(hit.PK, hit.SK),
	})
	if err != nil {
		return domain.Restaurant{}, fmt.Errorf("repository: GetRestaurant get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Restaurant{}, fmt.Errorf("repository: GetRestaurant %s/%s: %w", hit.PK, hit.SK, ErrNotFound)
	}

	item := out.Item
	for _, k := range internalAttributes {
		delete(item, k)
	}
	var r domain.Restaurant
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return domain.Restaurant{}, fmt.Errorf("repository: GetRestaurant unmarshal: %w", err)
	}
	return r, nil
}
