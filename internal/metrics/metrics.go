// Package metrics emits operational metrics about assessment runs.
//
// Reporting is strictly best-effort: a metrics outage must never fail or
// slow a run, so every error is logged and swallowed here.
package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

// DefaultNamespace groups the engine's metrics in CloudWatch.
const DefaultNamespace = "AssessmentEngine"

// PutMetricDataAPI is the slice of the CloudWatch client the reporter
// needs.
type PutMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchReporter implements assessment.Reporter on CloudWatch custom
// metrics, dimensioned by challenge id.
type CloudWatchReporter struct {
	client    PutMetricDataAPI
	namespace string
}

// NewCloudWatchReporter wires a reporter. An empty namespace selects
// DefaultNamespace.
func NewCloudWatchReporter(client PutMetricDataAPI, namespace string) *CloudWatchReporter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatchReporter{client: client, namespace: namespace}
}

// ReportAssessment records the score, pass verdict, and duration of one
// finished run.
func (r *CloudWatchReporter) ReportAssessment(ctx context.Context, challengeID string, score, maxScore int, passed bool, duration time.Duration) {
	dims := []types.Dimension{{
		Name:  aws.String("ChallengeId"),
		Value: aws.String(challengeID),
	}}

	passedValue := 0.0
	if passed {
		passedValue = 1.0
	}

	r.put(ctx, []types.MetricDatum{
		{
			MetricName: aws.String("Score"),
			Dimensions: dims,
			Value:      aws.Float64(float64(score)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String("MaxScore"),
			Dimensions: dims,
			Value:      aws.Float64(float64(maxScore)),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String("Passed"),
			Dimensions: dims,
			Value:      aws.Float64(passedValue),
			Unit:       types.StandardUnitCount,
		},
		{
			MetricName: aws.String("RunDuration"),
			Dimensions: dims,
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       types.StandardUnitMilliseconds,
		},
	})
}

// ReportRunFailure counts an aborted run, dimensioned by the failure kind
// so lookup misses, load errors, and trust rejections chart separately.
func (r *CloudWatchReporter) ReportRunFailure(ctx context.Context, challengeID string, kind fault.Kind) {
	if kind == "" {
		// CloudWatch rejects empty dimension values.
		kind = "Unclassified"
	}
	r.put(ctx, []types.MetricDatum{{
		MetricName: aws.String("RunFailure"),
		Dimensions: []types.Dimension{
			{Name: aws.String("ChallengeId"), Value: aws.String(challengeID)},
			{Name: aws.String("Kind"), Value: aws.String(string(kind))},
		},
		Value: aws.Float64(1),
		Unit:  types.StandardUnitCount,
	}})
}

func (r *CloudWatchReporter) put(ctx context.Context, data []types.MetricDatum) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(r.namespace),
		MetricData: data,
	})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to publish metrics.", "error", err)
	}
}
