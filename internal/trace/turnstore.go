package trace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/wolfman30/tradeline-ai-platform/pkg/logging"
)

const turnRecordTTL = 30 * 24 * time.Hour

// ErrTurnRecordNotFound indicates no record exists for the call and turn.
var ErrTurnRecordNotFound = errors.New("trace: turn record not found")

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// TurnStore persists turn records in DynamoDB, keyed by callId + turn.
// The SQS drain worker writes here; dashboards and cost accounting read.
type TurnStore struct {
	client dynamoAPI
	table  string
	logger *logging.Logger
}

// NewTurnStore creates a DynamoDB-backed turn record store.
func NewTurnStore(client dynamoAPI, table string, logger *logging.Logger) *TurnStore {
	if client == nil {
		panic("trace: dynamodb client required")
	}
	if table == "" {
		panic("trace: table name required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TurnStore{client: client, table: table, logger: logger}
}

type storedTurnRecord struct {
	TurnRecord
	ExpiresAt int64 `dynamodbav:"expiresAt"`
}

// Put writes a turn record with a TTL attribute.
func (s *TurnStore) Put(ctx context.Context, rec TurnRecord) error {
	item, err := attributevalue.MarshalMap(storedTurnRecord{
		TurnRecord: rec,
		ExpiresAt:  time.Now().Add(turnRecordTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("trace: marshal turn record: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("trace: put turn record: %w", err)
	}
	return nil
}

// Get fetches a turn record by call id and turn number.
func (s *TurnStore) Get(ctx context.Context, callID string, turn int) (*TurnRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"callId": &types.AttributeValueMemberS{Value: callID},
			"turn":   &types.AttributeValueMemberN{Value: strconv.Itoa(turn)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("trace: get turn record: %w", err)
	}
	if out.Item == nil {
		return nil, ErrTurnRecordNotFound
	}

	var rec storedTurnRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("trace: unmarshal turn record: %w", err)
	}
	return &rec.TurnRecord, nil
}
