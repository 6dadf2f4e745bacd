package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/bsc-coop/ops-admin/internal/config"
	"github.com/bsc-coop/ops-admin/internal/pkg/awsconf"
)

// DynamoAPI is the part of the DynamoDB client the ledger uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDB keeps entries in a table keyed by PK.
type DynamoDB struct {
	client    DynamoAPI
	tableName string
}

// NewDynamoDB creates a DynamoDB ledger from config.
func NewDynamoDB(ctx context.Context, cfg config.LedgerConfig) (*DynamoDB, error) {
	awsCfg, err := awsconf.Load(ctx, awsconf.Options{Region: cfg.Region})
	if err != nil {
		return nil, err
	}
	return NewDynamoDBWithClient(dynamodb.NewFromConfig(awsCfg), cfg.TableName), nil
}

// NewDynamoDBWithClient wraps an existing client.
func NewDynamoDBWithClient(client DynamoAPI, tableName string) *DynamoDB {
	return &DynamoDB{client: client, tableName: tableName}
}

var statusName = map[string]string{"#status": "status"}

func (d *DynamoDB) Stage(ctx context.Context, e Entry) error {
	e.Status = StatusStaged
	av, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshaling ledger entry: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.tableName),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(PK) OR #status = :staged"),
		ExpressionAttributeNames: statusName,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":staged": &types.AttributeValueMemberS{Value: string(StatusStaged)},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s: %w", e.Key, ErrAlreadySent)
	}
	if err != nil {
		return fmt.Errorf("putting ledger entry: %w", err)
	}
	return nil
}

func (d *DynamoDB) MarkSent(ctx context.Context, key, messageID string, at time.Time) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(d.tableName),
		Key:                      pk(key),
		UpdateExpression:         aws.String("SET #status = :sent, message_id = :mid, sent_at = :at"),
		ConditionExpression:      aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: statusName,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sent": &types.AttributeValueMemberS{Value: string(StatusSent)},
			":mid":  &types.AttributeValueMemberS{Value: messageID},
			":at":   &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339Nano)},
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("marking ledger entry sent: %w", err)
	}
	return nil
}

func (d *DynamoDB) Get(ctx context.Context, key string) (Entry, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.tableName),
		Key:            pk(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("getting ledger entry: %w", err)
	}
	if len(out.Item) == 0 {
		return Entry{}, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	var e Entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return Entry{}, fmt.Errorf("unmarshaling ledger entry: %w", err)
	}
	return e, nil
}

func (d *DynamoDB) Unsent(ctx context.Context) ([]Entry, error) {
	var (
		out   []Entry
		start map[string]types.AttributeValue
	)
	for {
		page, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(d.tableName),
			FilterExpression:         aws.String("#status = :staged"),
			ExpressionAttributeNames: statusName,
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":staged": &types.AttributeValueMemberS{Value: string(StatusStaged)},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning ledger: %w", err)
		}
		var entries []Entry
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &entries); err != nil {
			return nil, fmt.Errorf("unmarshaling ledger entries: %w", err)
		}
		out = append(out, entries...)
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sortEntries(out)
	return out, nil
}

func pk(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: key}}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
