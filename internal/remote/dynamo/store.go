// Package dynamo implements remote.DocumentStore on a single DynamoDB
// table. Items are keyed by ("Collection", "ID"); all other attributes come
// from the document itself, so the stored shape matches the JSON snapshot
// shape used by the local cache.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/avolkovs/couplesync/internal/common"
	"github.com/avolkovs/couplesync/internal/logging"
	"github.com/avolkovs/couplesync/internal/remote"
)

const (
	attrCollection = "Collection"
	attrID         = "ID"
)

type Store struct {
	client    *dynamodb.Client
	tableName string
	log       logging.Logger
}

func New(client *dynamodb.Client, tableName string, log logging.Logger) *Store {
	return &Store{client: client, tableName: tableName, log: log}
}

func (s *Store) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrCollection: &types.AttributeValueMemberS{Value: collection},
		attrID:         &types.AttributeValueMemberS{Value: id},
	}
}

func (s *Store) Query(ctx context.Context, collection string, filter remote.Filter) ([]remote.Document, error) {
	keyCond := expression.Key(attrCollection).Equal(expression.Value(collection))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)

	if len(filter) > 0 {
		var cond expression.ConditionBuilder
		first := true
		for name, value := range filter {
			c := expression.Name(name).Equal(expression.Value(value))
			if first {
				cond = c
				first = false
			} else {
				cond = cond.And(c)
			}
		}
		builder = builder.WithFilter(cond)
	}

	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building query expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var docs []remote.Document
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: querying %s: %v", common.ErrNetwork, collection, err)
		}
		for _, item := range page.Items {
			doc, err := itemToDocument(item)
			if err != nil {
				s.log.Warn(ctx, "skipping unreadable item", "collection", collection, "error", err)
				continue
			}
			docs = append(docs, doc)
		}
	}

	s.log.Debug(ctx, "query complete", "collection", collection, "count", len(docs))
	return docs, nil
}

func (s *Store) Create(ctx context.Context, collection string, doc remote.Document) (string, error) {
	id := uuid.NewString()

	item, err := documentToItem(doc, collection, id)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("%w: creating in %s: %v", common.ErrNetwork, collection, err)
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc remote.Document) error {
	item, err := documentToItem(doc, collection, id)
	if err != nil {
		return err
	}

	// Unconditional put: last write wins.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", common.ErrNetwork, collection, id, err)
	}
	return nil
}

func (s *Store) AppendToArray(ctx context.Context, collection, id, field string, value any) error {
	update := expression.Set(
		expression.Name(field),
		expression.ListAppend(
			expression.IfNotExists(expression.Name(field), expression.Value([]any{})),
			expression.Value([]any{value}),
		),
	)
	cond := expression.AttributeExists(expression.Name(attrID))

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("building append expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       s.key(collection, id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
		}
		return fmt.Errorf("%w: appending to %s/%s.%s: %v", common.ErrNetwork, collection, id, field, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(collection, id),
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %s/%s: %v", common.ErrNetwork, collection, id, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(collection, id),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s/%s: %v", common.ErrNetwork, collection, id, err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrNotFound, collection, id)
	}
	return itemToDocument(out.Item)
}

func documentToItem(doc remote.Document, collection, id string) (map[string]types.AttributeValue, error) {
	clone := make(remote.Document, len(doc)+1)
	for k, v := range doc {
		clone[k] = v
	}
	clone["id"] = id

	item, err := attributevalue.MarshalMap(clone)
	if err != nil {
		return nil, fmt.Errorf("%w: marshalling document: %v", common.ErrValidation, err)
	}
	item[attrCollection] = &types.AttributeValueMemberS{Value: collection}
	item[attrID] = &types.AttributeValueMemberS{Value: id}
	return item, nil
}

func itemToDocument(item map[string]types.AttributeValue) (remote.Document, error) {
	var doc remote.Document
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshalling item: %w", err)
	}
	delete(doc, attrCollection)
	delete(doc, attrID)
	return doc, nil
}
