package dynamo

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

	"github.com/MrEthical07/goGuard/ledger"
)

const (
	recordSK    = "RECORD"
	incidentPK  = "INCIDENT#latest"
	incidentSK  = "CLOCK"
	ledgerPKFmt = "LEDGER#%s"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type recordItem struct {
	PK        string         `dynamodbav:"PK"`
	SK        string         `dynamodbav:"SK"`
	Subject   string         `dynamodbav:"Subject"`
	Version   int64          `dynamodbav:"Version"`
	Entries   []ledger.Entry `dynamodbav:"Entries"`
	UpdatedAt string         `dynamodbav:"UpdatedAt"`
}

type incidentItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	Latest int64  `dynamodbav:"Latest"`
}

// Store is a ledger.Backend on one DynamoDB table keyed by PK and SK.
type Store struct {
	client    API
	tableName string
	now       func() time.Time
}

// NewStore returns a Store writing to tableName.
func NewStore(client API, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

func recordKey(subject string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf(ledgerPKFmt, subject)},
		"SK": &types.AttributeValueMemberS{Value: recordSK},
	}
}

func incidentKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: incidentPK},
		"SK": &types.AttributeValueMemberS{Value: incidentSK},
	}
}

func (s *Store) Load(ctx context.Context, subject string) (ledger.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            recordKey(subject),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return ledger.Record{}, fmt.Errorf("%w: get record: %v", ledger.ErrUnavailable, err)
	}
	if out.Item == nil {
		return ledger.Record{Subject: subject}, nil
	}

	var item recordItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return ledger.Record{}, fmt.Errorf("%w: %v", ledger.ErrCorruptRecord, err)
	}
	return ledger.Record{Subject: subject, Version: uint64(item.Version), Entries: item.Entries}, nil
}

func (s *Store) CompareAndSwap(ctx context.Context, rec ledger.Record) (bool, error) {
	entries := rec.Entries
	if entries == nil {
		entries = []ledger.Entry{}
	}
	item, err := attributevalue.MarshalMap(recordItem{
		PK:        fmt.Sprintf(ledgerPKFmt, rec.Subject),
		SK:        recordSK,
		Subject:   rec.Subject,
		Version:   int64(rec.Version) + 1,
		Entries:   entries,
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	in := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if rec.Version == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		in.ConditionExpression = aws.String("Version = :v")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatUint(rec.Version, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, in); err != nil {
		if isConditionFailed(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: put record: %v", ledger.ErrUnavailable, err)
	}
	return true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)}); err != nil {
		return fmt.Errorf("%w: describe table: %v", ledger.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) IncidentTime(ctx context.Context) (int64, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            incidentKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, false, fmt.Errorf("%w: get incident: %v", ledger.ErrUnavailable, err)
	}
	if out.Item == nil {
		return 0, false, nil
	}
	var item incidentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return 0, false, fmt.Errorf("%w: %v", ledger.ErrCorruptRecord, err)
	}
	return item.Latest, true, nil
}

func (s *Store) InitIncidentTime(ctx context.Context, ts int64) (int64, error) {
	err := s.putIncident(ctx, ts, aws.String("attribute_not_exists(PK)"))
	if err != nil && !isConditionFailed(err) {
		return 0, fmt.Errorf("%w: init incident: %v", ledger.ErrUnavailable, err)
	}
	cur, ok, err := s.IncidentTime(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return ts, nil
	}
	return cur, nil
}

func (s *Store) SetIncidentTime(ctx context.Context, ts int64) error {
	if err := s.putIncident(ctx, ts, nil); err != nil {
		return fmt.Errorf("%w: set incident: %v", ledger.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) putIncident(ctx context.Context, ts int64, condition *string) error {
	item, err := attributevalue.MarshalMap(incidentItem{PK: incidentPK, SK: incidentSK, Latest: ts})
	if err != nil {
		return err
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: condition,
	})
	return err
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
