// Package s3object probes for the presence and shape of an object in a
// bucket owned by the target tenant.
package s3object

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/zclconf/go-cty/cty"

	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// API is the slice of the S3 client the probe needs.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Probe implements probe.Handler for the 's3_object' probe type.
type Probe struct {
	newClient func(aws.Config) API
}

// New builds the probe with the real S3 client.
func New() *Probe {
	return &Probe{newClient: func(cfg aws.Config) API {
		return s3.NewFromConfig(cfg)
	}}
}

func (p *Probe) Name() string { return "s3_object" }

func (p *Probe) Schema() map[string]cty.Type {
	return map[string]cty.Type{
		"bucket": cty.String,
		"key":    cty.String,
	}
}

// Run heads the object and reports existence, size, and content type.
func (p *Probe) Run(ctx context.Context, in probe.Input, args map[string]cty.Value) (cty.Value, error) {
	bucket, ok := stringArg(args, "bucket")
	if !ok {
		return cty.NilVal, fmt.Errorf("s3_object probe requires a 'bucket' argument")
	}
	key, ok := stringArg(args, "key")
	if !ok {
		return cty.NilVal, fmt.Errorf("s3_object probe requires a 'key' argument")
	}
	if in.Credentials == nil {
		return cty.NilVal, fmt.Errorf("s3_object probe requires tenant credentials")
	}

	client := p.newClient(in.Credentials.AWSConfig(in.Region))
	out, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return cty.ObjectVal(map[string]cty.Value{
				"exists":       cty.False,
				"size":         cty.NumberIntVal(0),
				"content_type": cty.StringVal(""),
			}), nil
		}
		return cty.NilVal, fmt.Errorf("head object s3://%s/%s: %w", bucket, key, err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"exists":       cty.True,
		"size":         cty.NumberIntVal(aws.ToInt64(out.ContentLength)),
		"content_type": cty.StringVal(aws.ToString(out.ContentType)),
	}), nil
}

func stringArg(args map[string]cty.Value, name string) (string, bool) {
	v, ok := args[name]
	if !ok || v.IsNull() || v.Type() != cty.String {
		return "", false
	}
	return v.AsString(), true
}
