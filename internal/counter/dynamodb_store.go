package counter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var _ Store = (*DynamoDBStore)(nil)

// DynamoDBAPI is the part of *dynamodb.Client the store uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoItem struct {
	ID          string `dynamodbav:"id"`
	Count       int64  `dynamodbav:"count"`
	LastUpdated string `dynamodbav:"last_updated"`
}

// DynamoDBStore keeps records in a table whose partition key is "id".
type DynamoDBStore struct {
	api   DynamoDBAPI
	table string
}

func NewDynamoDBStore(api DynamoDBAPI, table string) *DynamoDBStore {
	return &DynamoDBStore{api: api, table: table}
}

func (s *DynamoDBStore) Get(ctx context.Context, id string) (*Record, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem: table=%s, %w", s.table, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("attributevalue.UnmarshalMap: %w", err)
	}
	return &Record{ID: id, Count: item.Count, LastUpdated: item.LastUpdated}, nil
}

func (s *DynamoDBStore) Put(ctx context.Context, rec *Record) error {
	av, err := attributevalue.MarshalMap(dynamoItem{
		ID:          rec.ID,
		Count:       rec.Count,
		LastUpdated: rec.LastUpdated,
	})
	if err != nil {
		return fmt.Errorf("attributevalue.MarshalMap: %w", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("PutItem: table=%s, %w", s.table, err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error {
	return nil
}
