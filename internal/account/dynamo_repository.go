package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const partitionKey = "ClientID"

// DynamoAPI is the subset of the DynamoDB client used by DynamoRepository.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoRepository stores one item per client in a DynamoDB table keyed by ClientID.
type DynamoRepository struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoRepository creates a repository over the given table.
func NewDynamoRepository(client DynamoAPI, tableName string) *DynamoRepository {
	return &DynamoRepository{client: client, tableName: tableName}
}

func (r *DynamoRepository) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{partitionKey: &types.AttributeValueMemberS{Value: id}}
}

// Get reads a client item with strong consistency.
func (r *DynamoRepository) Get(ctx context.Context, id string) (Record, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Record{}, fmt.Errorf("get client %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, &CorruptRecordError{ClientID: id, Field: "item", Err: err}
	}
	return rec, nil
}

// Create puts the item only if no item with the same ClientID exists.
func (r *DynamoRepository) Create(ctx context.Context, rec Record) error {
	if rec.Version == 0 {
		rec.Version = 1
	}
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal client %s: %w", rec.ClientID, err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(partitionKey))).
		Build()
	if err != nil {
		return fmt.Errorf("build create condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("put client %s: %w", rec.ClientID, err)
	}
	return nil
}

// UpdateBalance sets Limit, CardLimitReached and ReloadingHistory and bumps
// Version in one conditional UpdateItem. Items written before versioning was
// introduced carry no Version attribute and match an expected version of 0.
func (r *DynamoRepository) UpdateBalance(ctx context.Context, id string, u BalanceUpdate) error {
	update := expression.
		Set(expression.Name("Limit"), expression.Value(u.Limit)).
		Set(expression.Name("CardLimitReached"), expression.Value(u.CardLimitReached)).
		Set(expression.Name("ReloadingHistory"), expression.Value(u.ReloadingHistory)).
		Set(expression.Name("Version"), expression.Value(u.ExpectedVersion+1))

	versionMatches := expression.Name("Version").Equal(expression.Value(u.ExpectedVersion))
	if u.ExpectedVersion == 0 {
		versionMatches = expression.Or(expression.AttributeNotExists(expression.Name("Version")), versionMatches)
	}
	cond := expression.AttributeExists(expression.Name(partitionKey)).And(versionMatches)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("build balance update: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 r.key(id),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			if len(conditionalCheckFailed.Item) == 0 {
				return ErrNotFound
			}
			return ErrVersionConflict
		}
		return fmt.Errorf("update client %s: %w", id, err)
	}
	return nil
}

// List scans the whole table.
func (r *DynamoRepository) List(ctx context.Context) ([]Record, error) {
	var records []Record
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.tableName),
		ConsistentRead: aws.Bool(true),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan clients: %w", err)
		}
		for _, item := range page.Items {
			var rec Record
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				id, _ := item[partitionKey].(*types.AttributeValueMemberS)
				if id == nil {
					return nil, fmt.Errorf("unmarshal client item: %w", err)
				}
				rec = Record{ClientID: id.Value, loadErr: err}
			}
			records = append(records, rec)
		}
	}
	return records, nil
}
