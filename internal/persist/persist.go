// Package persist stores finished assessment results.
package persist

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// PutItemAPI is the slice of the DynamoDB client the persister needs.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoPersister writes one item per assessment run, keyed by the run's
// unique id, so retried runs append history instead of overwriting it.
type DynamoPersister struct {
	client PutItemAPI
	table  string
}

// NewDynamoPersister wires a persister to a results table.
func NewDynamoPersister(client PutItemAPI, table string) *DynamoPersister {
	return &DynamoPersister{client: client, table: table}
}

// Save implements assessment.Persister. Failures surface as
// PersistenceError; the engine logs them without discarding the score.
func (p *DynamoPersister) Save(ctx context.Context, result *assessment.Result) error {
	const op = "persist.DynamoPersister.Save"

	item, err := attributevalue.MarshalMap(result)
	if err != nil {
		return fault.Wrap(fault.Persistence, op, err)
	}

	_, err = p.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item:      item,
	})
	if err != nil {
		return fault.Wrap(fault.Persistence, op, err)
	}

	ctxlog.FromContext(ctx).Debug("Assessment result stored.",
		"assessment_id", result.AssessmentID,
		"table", p.table,
	)
	return nil
}
