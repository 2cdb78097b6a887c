package blob

import (
	"context"
	"time"
)

// ObjectInfo describes a stored object without its bytes.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// Bucket is the contract the pipeline has with object storage. The S3
// implementation backs production; the filesystem implementation backs local
// development and tests.
type Bucket interface {
	// Head returns object metadata, or a NotFoundError if the key is absent.
	Head(ctx context.Context, key string) (ObjectInfo, error)
	// Get downloads the object bytes.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes the object bytes under key with the given content type.
	Put(ctx context.Context, key, contentType string, data []byte) error
	// PresignUpload mints a time-limited upload grant for key. The returned
	// fields must be sent verbatim alongside the payload; the grant itself
	// pins the content type and bounds the payload size, so an uploader
	// cannot exceed MaxUploadBytes even before the object is ever inspected.
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (url string, fields map[string]string, err error)
	// PresignGet mints a time-limited download URL for key.
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}
