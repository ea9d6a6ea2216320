package checkmod

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

type fakeStore struct {
	objects map[string][]byte
	err     error
}

func (f *fakeStore) Fetch(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	src, ok := f.objects[key]
	if !ok {
		return nil, &fakeNotFound{key: key}
	}
	return src, nil
}

type fakeNotFound struct{ key string }

func (e *fakeNotFound) Error() string { return "no such object " + e.key }

func TestLoaderLoad(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{
		"challenges/multi-az-101/checks.hcl": []byte(moduleSrc),
	}}
	loader := NewLoader(store, testRegistry(stackProbe()))
	ctx := context.Background()

	t.Run("loads and compiles", func(t *testing.T) {
		mod, err := loader.Load(ctx, "challenges/multi-az-101/checks.hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{"checkA", "checkB"}, mod.Names())
	})

	t.Run("missing object is LoadError", func(t *testing.T) {
		_, err := loader.Load(ctx, "challenges/ghost/checks.hcl")
		require.Error(t, err)
		assert.Equal(t, fault.LoadError, fault.KindOf(err))
	})

	t.Run("each load is a fresh module", func(t *testing.T) {
		a, err := loader.Load(ctx, "challenges/multi-az-101/checks.hcl")
		require.NoError(t, err)
		b, err := loader.Load(ctx, "challenges/multi-az-101/checks.hcl")
		require.NoError(t, err)
		assert.NotSame(t, a, b)

		// Publishing new check code takes effect on the very next load.
		store.objects["challenges/multi-az-101/checks.hcl"] = []byte(`check "checkC" { implemented = true }`)
		c, err := loader.Load(ctx, "challenges/multi-az-101/checks.hcl")
		require.NoError(t, err)
		assert.Equal(t, []string{"checkC"}, c.Names())
	})

	t.Run("oversized module is LoadError", func(t *testing.T) {
		store.objects["huge.hcl"] = bytes.Repeat([]byte("#"), maxModuleBytes+1)
		_, err := loader.Load(ctx, "huge.hcl")
		require.Error(t, err)
		assert.Equal(t, fault.LoadError, fault.KindOf(err))
	})
}

type fakeGetObject struct {
	body string
	err  error
}

func (f *fakeGetObject) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(f.body)),
		ContentLength: aws.Int64(int64(len(f.body))),
	}, nil
}

func TestS3StoreFetch(t *testing.T) {
	store := NewS3Store(&fakeGetObject{body: "check \"a\" { implemented = true }"}, "challenge-assets")
	src, err := store.Fetch(context.Background(), "challenges/a/checks.hcl")
	require.NoError(t, err)
	assert.Contains(t, string(src), "implemented")
}
