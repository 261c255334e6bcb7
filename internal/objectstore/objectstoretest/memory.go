// Package objectstoretest provides an in-memory S3 API for tests.
package objectstoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// MemoryAPI is an in-process objectstore.API with S3 conditional-write
// semantics.
type MemoryAPI struct {
	mu      sync.Mutex
	objects map[string]memObject
	seq     int
}

type memObject struct {
	data []byte
	etag string
}

// NewMemoryAPI returns an empty store.
func NewMemoryAPI() *MemoryAPI {
	return &MemoryAPI{objects: make(map[string]memObject)}
}

// PutObject stores the body, honoring If-None-Match and If-Match.
func (m *MemoryAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	var data []byte
	if in.Body != nil {
		b, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
		data = b
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := aws.ToString(in.Key)
	cur, exists := m.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, preconditionFailed(key)
	}
	if in.IfMatch != nil && (!exists || strings.Trim(*in.IfMatch, `"`) != cur.etag) {
		return nil, preconditionFailed(key)
	}

	m.seq++
	etag := fmt.Sprintf("%032x", m.seq)
	m.objects[key] = memObject{data: data, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(`"` + etag + `"`)}, nil
}

// GetObject returns a copy of the stored body.
func (m *MemoryAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))),
		ETag: aws.String(`"` + obj.etag + `"`),
	}, nil
}

// HeadObject returns the ETag of the stored object.
func (m *MemoryAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(`"` + obj.etag + `"`)}, nil
}

// DeleteObject removes the object; deleting a missing key succeeds.
func (m *MemoryAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func preconditionFailed(key string) error {
	return &smithy.GenericAPIError{
		Code:    "PreconditionFailed",
		Message: "precondition failed for " + key,
	}
}
