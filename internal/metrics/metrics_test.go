package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

type fakeCloudWatch struct {
	err    error
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(_ context.Context, params *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func metricByName(t *testing.T, data []types.MetricDatum, name string) types.MetricDatum {
	t.Helper()
	for _, d := range data {
		if aws.ToString(d.MetricName) == name {
			return d
		}
	}
	t.Fatalf("no metric named %q", name)
	return types.MetricDatum{}
}

func TestReportAssessment(t *testing.T) {
	client := &fakeCloudWatch{}
	r := NewCloudWatchReporter(client, "")

	r.ReportAssessment(context.Background(), "multi-az-101", 10, 25, false, 1200*time.Millisecond)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, DefaultNamespace, aws.ToString(in.Namespace))

	score := metricByName(t, in.MetricData, "Score")
	assert.Equal(t, 10.0, aws.ToFloat64(score.Value))
	require.Len(t, score.Dimensions, 1)
	assert.Equal(t, "multi-az-101", aws.ToString(score.Dimensions[0].Value))

	passed := metricByName(t, in.MetricData, "Passed")
	assert.Equal(t, 0.0, aws.ToFloat64(passed.Value))

	duration := metricByName(t, in.MetricData, "RunDuration")
	assert.Equal(t, 1200.0, aws.ToFloat64(duration.Value))
	assert.Equal(t, types.StandardUnitMilliseconds, duration.Unit)
}

func TestReportRunFailure(t *testing.T) {
	client := &fakeCloudWatch{}
	r := NewCloudWatchReporter(client, "Staging/Assessment")

	r.ReportRunFailure(context.Background(), "multi-az-101", fault.AssumeRole)

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "Staging/Assessment", aws.ToString(in.Namespace))

	failure := metricByName(t, in.MetricData, "RunFailure")
	require.Len(t, failure.Dimensions, 2)
	assert.Equal(t, "AssumeRoleError", aws.ToString(failure.Dimensions[1].Value))
}

func TestReportRunFailureUnclassified(t *testing.T) {
	client := &fakeCloudWatch{}
	r := NewCloudWatchReporter(client, "")

	r.ReportRunFailure(context.Background(), "multi-az-101", fault.Kind(""))

	require.Len(t, client.inputs, 1)
	failure := metricByName(t, client.inputs[0].MetricData, "RunFailure")
	assert.Equal(t, "Unclassified", aws.ToString(failure.Dimensions[1].Value))
}

func TestReporterSwallowsErrors(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("throttled")}
	r := NewCloudWatchReporter(client, "")

	// Must not panic or propagate anything.
	r.ReportAssessment(context.Background(), "multi-az-101", 25, 25, true, time.Second)
	r.ReportRunFailure(context.Background(), "multi-az-101", fault.LoadError)
	assert.Len(t, client.inputs, 2)
}
