package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dotcommander/supervisa/internal/record"
)

// ErrDraftRecord is returned when an autosaved draft is pushed. Drafts never
// leave the device.
var ErrDraftRecord = errors.New("draft records cannot be pushed")

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// NewClient builds a DynamoDB client from the default AWS configuration.
// endpoint is optional and targets a local DynamoDB when set.
func NewClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// item is the table row. The record travels as its JSON body so fields the
// model does not know about are kept; the other attributes allow querying
// from the console.
type item struct {
	ID                string `dynamodbav:"id"`
	VisitDate         string `dynamodbav:"fechaVisita"`
	SiteName          string `dynamodbav:"nombreEspacio"`
	Contractor        string `dynamodbav:"contratista"`
	SpaceType         string `dynamodbav:"tipoEspacio"`
	PercentCompliance int    `dynamodbav:"percentCompliance"`
	IsAutoSave        bool   `dynamodbav:"isAutoSave"`
	Body              string `dynamodbav:"body"`
	PushedAt          string `dynamodbav:"pushedAt"`
}

// Store reads and writes finalized records in a DynamoDB table.
type Store struct {
	client    Client
	tableName string
	now       func() time.Time
}

// NewStore creates a Store over client and table.
func NewStore(client Client, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// Push writes a finalized record. Drafts and records without id are refused.
func (s *Store) Push(ctx context.Context, r record.FormRecord) error {
	if s.client == nil {
		return fmt.Errorf("DynamoDB client not initialized")
	}
	if r.IsAutoSave {
		return fmt.Errorf("%w: %s", ErrDraftRecord, r.Label())
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record %s has no id", r.Label())
	}

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", r.ID, err)
	}

	av, err := attributevalue.MarshalMap(item{
		ID:                r.ID,
		VisitDate:         r.VisitDate,
		SiteName:          r.SiteName,
		Contractor:        r.ContractorName(),
		SpaceType:         r.SpaceType,
		PercentCompliance: r.PercentCompliance.Int(),
		IsAutoSave:        false,
		Body:              string(body),
		PushedAt:          s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", r.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to save record %s to DynamoDB: %w", r.ID, err)
	}
	return nil
}

// FetchResult holds the decoded records and the rows that could not be read.
type FetchResult struct {
	Records []record.FormRecord
	Skipped []record.Skipped
}

// Fetch scans the whole table. Rows that fail to decode are reported in
// Skipped rather than failing the scan.
func (s *Store) Fetch(ctx context.Context) (*FetchResult, error) {
	if s.client == nil {
		return nil, fmt.Errorf("DynamoDB client not initialized")
	}

	result := &FetchResult{}
	var lastEvaluatedKey map[string]dynamodbtypes.AttributeValue
	index := 0

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(s.tableName),
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan records: %w", err)
		}

		for _, av := range out.Items {
			var row item
			if err := attributevalue.UnmarshalMap(av, &row); err != nil {
				result.Skipped = append(result.Skipped, record.Skipped{File: s.tableName, Index: index, Reason: err.Error()})
				index++
				continue
			}
			var r record.FormRecord
			if err := json.Unmarshal([]byte(row.Body), &r); err != nil {
				result.Skipped = append(result.Skipped, record.Skipped{File: s.tableName, Index: index, Reason: fmt.Sprintf("record %s: %v", row.ID, err)})
				index++
				continue
			}
			if r.ID == "" {
				r.ID = row.ID
			}
			result.Records = append(result.Records, r)
			index++
		}

		lastEvaluatedKey = out.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			break
		}
	}

	return result, nil
}
