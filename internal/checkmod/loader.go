package checkmod

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Wollering/CTF-Assessment-Engine/internal/ctxlog"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
	"github.com/Wollering/CTF-Assessment-Engine/internal/probe"
)

// ObjectStore is the retrieval boundary for check code.
type ObjectStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// Loader fetches and compiles a challenge's check module. Every Load
// produces a fresh Module — nothing is cached across runs, so the engine
// always evaluates the currently published version of a challenge's
// checks and no state can leak between tenants.
type Loader struct {
	store  ObjectStore
	probes *probe.Registry
}

// NewLoader wires a Loader.
func NewLoader(store ObjectStore, probes *probe.Registry) *Loader {
	return &Loader{store: store, probes: probes}
}

// Load retrieves and parses the check module at the given key. A missing
// object, oversized or malformed source, or a reference to an
// unregistered probe is a LoadError; the run must not proceed.
func (l *Loader) Load(ctx context.Context, key string) (*Module, error) {
	const op = "checkmod.Loader.Load"
	logger := ctxlog.FromContext(ctx).With("key", key)

	src, err := l.store.Fetch(ctx, key)
	if err != nil {
		return nil, fault.Wrap(fault.LoadError, op, err)
	}
	if err := guardSize(op, key, len(src)); err != nil {
		return nil, err
	}

	mod, err := Parse(ctx, src, key, l.probes)
	if err != nil {
		return nil, err
	}

	logger.Info("Check module loaded.", "checks", len(mod.checks), "bytes", len(src))
	return mod, nil
}

// GetObjectAPI is the slice of the S3 client the store needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store fetches check code objects from a bucket owned by the platform
// (not the tenant), read with the engine's own identity.
type S3Store struct {
	client GetObjectAPI
	bucket string
}

// NewS3Store wires an S3Store.
func NewS3Store(client GetObjectAPI, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Fetch implements ObjectStore. The response body is always drained and
// closed; no transient state survives the call on either path.
func (s *S3Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(io.LimitReader(out.Body, maxModuleBytes+1))
}
