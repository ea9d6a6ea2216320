// Package cfnstack probes the state of the target tenant's resource group
// (a CloudFormation stack) with the run's brokered credentials.
package cfnstack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/smithy-go"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// API is the slice of the CloudFormation client the probe needs.
type API interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// Probe implements probe.Handler for the 'cfn_stack' probe type.
type Probe struct {
	newClient func(aws.Config) API
}

// New builds the probe with the real CloudFormation client.
func New() *Probe {
	return &Probe{newClient: func(cfg aws.Config) API {
		return cloudformation.NewFromConfig(cfg)
	}}
}

func (p *Probe) Name() string { return "cfn_stack" }

func (p *Probe) Schema() map[string]cty.Type {
	return map[string]cty.Type{
		"stack_name": cty.String,
	}
}

// Run describes the stack and reports existence, status, and outputs.
// The stack name defaults to the run's derived resource-group name.
func (p *Probe) Run(ctx context.Context, in probe.Input, args map[string]cty.Value) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("probe", p.Name())

	stackName := in.StackName
	if v, ok := args["stack_name"]; ok && !v.IsNull() {
		stackName = v.AsString()
	}
	if in.Credentials == nil {
		return cty.NilVal, fmt.Errorf("cfn_stack probe requires tenant credentials")
	}

	client := p.newClient(in.Credentials.AWSConfig(in.Region))
	out, err := client.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stackName),
	})
	if err != nil {
		if stackMissing(err) {
			logger.Debug("Stack does not exist.", "stack", stackName)
			return cty.ObjectVal(map[string]cty.Value{
				"exists":  cty.False,
				"status":  cty.StringVal(""),
				"outputs": cty.MapValEmpty(cty.String),
			}), nil
		}
		return cty.NilVal, fmt.Errorf("describe stack %q: %w", stackName, err)
	}
	if len(out.Stacks) == 0 {
		return cty.ObjectVal(map[string]cty.Value{
			"exists":  cty.False,
			"status":  cty.StringVal(""),
			"outputs": cty.MapValEmpty(cty.String),
		}), nil
	}

	stack := out.Stacks[0]
	outputs := make(map[string]cty.Value, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = cty.StringVal(aws.ToString(o.OutputValue))
	}
	outputsVal := cty.MapValEmpty(cty.String)
	if len(outputs) > 0 {
		outputsVal = cty.MapVal(outputs)
	}

	logger.Debug("Stack described.", "stack", stackName, "status", string(stack.StackStatus))
	return cty.ObjectVal(map[string]cty.Value{
		"exists":  cty.True,
		"status":  cty.StringVal(string(stack.StackStatus)),
		"outputs": outputsVal,
	}), nil
}

// stackMissing detects the ValidationError CloudFormation returns for a
// stack name it has never seen.
func stackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
