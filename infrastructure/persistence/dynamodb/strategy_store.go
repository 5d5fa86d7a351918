package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"strategy-editor/application/ports"
	pkgerrors "strategy-editor/pkg/errors"
)

const (
	strategyPrefix = "STRATEGY#"
	strategySK     = "STRATEGY"
	latestPK       = "STRATEGY#LATEST"
	latestSK       = "POINTER"

	// fixed width so stamps order as strings
	stampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// API is the part of the DynamoDB client the store uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// strategyItem is one saved strategy. The record travels as a JSON payload
// so the nested graph survives unchanged.
type strategyItem struct {
	PK        string `dynamodbav:"PK"`        // STRATEGY#<id>
	SK        string `dynamodbav:"SK"`        // STRATEGY
	Name      string `dynamodbav:"Name"`      // for console browsing
	IsValid   bool   `dynamodbav:"IsValid"`   // for console browsing
	Payload   string `dynamodbav:"Payload"`   // JSON record
	UpdatedAt string `dynamodbav:"UpdatedAt"` // UTC, fixed width
}

// latestItem points at the most recently saved strategy
type latestItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	StrategyID string `dynamodbav:"StrategyID"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

type key struct {
	PK string `dynamodbav:"PK"`
	SK string `dynamodbav:"SK"`
}

// StrategyStore keeps strategy records in a single DynamoDB table
type StrategyStore struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.StrategyStore = (*StrategyStore)(nil)

// NewStrategyStore creates a DynamoDB backed strategy store
func NewStrategyStore(client API, tableName string, logger *zap.Logger) *StrategyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StrategyStore{client: client, tableName: tableName, logger: logger, now: time.Now}
}

// Save writes the record and moves the latest pointer forward. The pointer
// never moves back to an older save.
func (s *StrategyStore) Save(ctx context.Context, record ports.StrategyRecord) error {
	id := record.Key()
	if id == "" {
		return pkgerrors.NewValidationError("strategy record has no id")
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.NewInternalError("encode strategy record").WithCause(err)
	}
	updatedAt := record.Data.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	stamp := updatedAt.UTC().Format(stampLayout)

	item, err := attributevalue.MarshalMap(strategyItem{
		PK:        strategyPrefix + id,
		SK:        strategySK,
		Name:      record.Name,
		IsValid:   record.Data.IsValid,
		Payload:   string(payload),
		UpdatedAt: stamp,
	})
	if err != nil {
		return pkgerrors.NewInternalError("marshal strategy item").WithCause(err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return pkgerrors.NewDatabaseError("put strategy", err)
	}

	return s.advanceLatest(ctx, id, stamp)
}

func (s *StrategyStore) advanceLatest(ctx context.Context, id, stamp string) error {
	pointer, err := attributevalue.MarshalMap(latestItem{PK: latestPK, SK: latestSK, StrategyID: id, UpdatedAt: stamp})
	if err != nil {
		return pkgerrors.NewInternalError("marshal latest pointer").WithCause(err)
	}
	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("UpdatedAt").LessThanEqual(expression.Value(stamp)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewInternalError("build latest condition").WithCause(err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      pointer,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			s.logger.Debug("Latest pointer already newer", zap.String("strategy_id", id))
			return nil
		}
		return pkgerrors.NewDatabaseError("update latest pointer", err)
	}
	return nil
}

// GetByID loads one record
func (s *StrategyStore) GetByID(ctx context.Context, id string) (ports.StrategyRecord, error) {
	var item strategyItem
	found, err := s.get(ctx, key{PK: strategyPrefix + id, SK: strategySK}, &item)
	if err != nil {
		return ports.StrategyRecord{}, err
	}
	if !found {
		return ports.StrategyRecord{}, pkgerrors.NewNotFoundError("strategy " + id)
	}
	var record ports.StrategyRecord
	if err := json.Unmarshal([]byte(item.Payload), &record); err != nil {
		return ports.StrategyRecord{}, pkgerrors.NewValidationErrorf("stored strategy %s is malformed: %v", id, err)
	}
	return record, nil
}

// Latest follows the latest pointer
func (s *StrategyStore) Latest(ctx context.Context) (ports.StrategyRecord, error) {
	var pointer latestItem
	found, err := s.get(ctx, key{PK: latestPK, SK: latestSK}, &pointer)
	if err != nil {
		return ports.StrategyRecord{}, err
	}
	if !found {
		return ports.StrategyRecord{}, pkgerrors.NewNotFoundError("latest strategy")
	}
	return s.GetByID(ctx, pointer.StrategyID)
}

func (s *StrategyStore) get(ctx context.Context, k key, out any) (bool, error) {
	av, err := attributevalue.MarshalMap(k)
	if err != nil {
		return false, pkgerrors.NewInternalError("marshal key").WithCause(err)
	}
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            av,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, pkgerrors.NewDatabaseError("get "+k.PK, err)
	}
	if len(result.Item) == 0 {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, pkgerrors.NewDatabaseError("unmarshal "+k.PK, err)
	}
	return true, nil
}
