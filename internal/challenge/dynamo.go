package challenge

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// GetItemAPI is the slice of the DynamoDB client the catalog needs.
type GetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// record mirrors the stored challenge item. The status field is kept as a
// raw string here and validated into a Status before the definition is
// handed out.
type record struct {
	ChallengeID     string         `dynamodbav:"challengeId"`
	Name            string         `dynamodbav:"name"`
	Description     string         `dynamodbav:"description"`
	Criteria        []Criterion    `dynamodbav:"assessmentCriteria"`
	StackNamePrefix string         `dynamodbav:"stackNamePrefix"`
	PassingScore    int            `dynamodbav:"passingScore"`
	Active          string         `dynamodbav:"active"`
	ScoringMode     string         `dynamodbav:"scoringMode"`
	CategoryWeights map[string]int `dynamodbav:"categoryWeights"`
	CheckCodeKey    string         `dynamodbav:"checkCodeKey"`
}

// DynamoCatalog reads challenge definitions from a DynamoDB table keyed by
// challengeId.
type DynamoCatalog struct {
	client GetItemAPI
	table  string
}

// NewDynamoCatalog builds a catalog over the given table.
func NewDynamoCatalog(client GetItemAPI, table string) *DynamoCatalog {
	return &DynamoCatalog{client: client, table: table}
}

// GetDefinition implements Catalog.
func (c *DynamoCatalog) GetDefinition(ctx context.Context, challengeID string) (*Definition, error) {
	const op = "challenge.DynamoCatalog.GetDefinition"

	out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"challengeId": &types.AttributeValueMemberS{Value: challengeID},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		// A transport or throttle failure is not "no such challenge"; leave
		// it unclassified so callers do not mistake an outage for a miss.
		return nil, fmt.Errorf("%s: challenge %q: %w", op, challengeID, err)
	}
	if len(out.Item) == 0 {
		return nil, fault.New(fault.NotFound, op, "no challenge %q in table %q", challengeID, c.table)
	}

	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fault.Wrap(fault.InvalidDefinition, op, err)
	}

	status, err := ParseStatus(rec.Active)
	if err != nil {
		return nil, fault.Wrap(fault.InvalidDefinition, op, err)
	}

	return &Definition{
		ChallengeID:     rec.ChallengeID,
		Name:            rec.Name,
		Description:     rec.Description,
		Criteria:        rec.Criteria,
		StackNamePrefix: rec.StackNamePrefix,
		PassingScore:    rec.PassingScore,
		Status:          status,
		ScoringMode:     ScoringMode(rec.ScoringMode),
		CategoryWeights: rec.CategoryWeights,
		CheckCodeKey:    rec.CheckCodeKey,
	}, nil
}
