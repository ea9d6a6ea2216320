package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

type fakePutItem struct {
	err  error
	last *dynamodb.PutItemInput
}

func (f *fakePutItem) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.last = params
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.PutItemOutput{}, nil
}

func sampleResult() *assessment.Result {
	return &assessment.Result{
		AssessmentID: "2f1a9c3e",
		SubjectID:    "team-7",
		ChallengeID:  "multi-az-101",
		TenantID:     "123456789012",
		Timestamp:    "2026-08-23T12:00:00Z",
		Score:        10,
		MaxScore:     25,
	}
}

func TestSave(t *testing.T) {
	client := &fakePutItem{}
	p := NewDynamoPersister(client, "assessment-results")

	require.NoError(t, p.Save(context.Background(), sampleResult()))

	require.NotNil(t, client.last)
	assert.Equal(t, "assessment-results", *client.last.TableName)

	id, ok := client.last.Item["assessmentId"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "2f1a9c3e", id.Value)
}

func TestSaveFailureIsPersistenceFault(t *testing.T) {
	client := &fakePutItem{err: errors.New("ProvisionedThroughputExceededException")}
	p := NewDynamoPersister(client, "assessment-results")

	err := p.Save(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Equal(t, fault.Persistence, fault.KindOf(err))
}
