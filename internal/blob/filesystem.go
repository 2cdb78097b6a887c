package blob

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"petavatar/internal/domain"
)

// FileBucket persists objects on the local filesystem. It is intended for
// development and test environments where an object storage service is not
// available. Presigned URLs degrade to plain paths under baseURL; the expiry
// is carried in a query parameter and neither it nor the upload size bound is
// enforced.
type FileBucket struct {
	basePath string
	baseURL  string
}

// NewFileBucket initializes a FileBucket rooted at basePath.
func NewFileBucket(basePath, baseURL string) (*FileBucket, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("blob: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("blob: ensure base path: %w", err)
	}
	return &FileBucket{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (b *FileBucket) path(key string) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.basePath, filepath.FromSlash(cleanKey)), nil
}

func (b *FileBucket) Head(ctx context.Context, key string) (ObjectInfo, error) {
	data, err := b.Get(ctx, key)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: key, Size: int64(len(data)), ContentType: detectContentType(key, data)}, nil
}

func (b *FileBucket) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.Wrap(domain.KindNotFound, "object not found: "+key, err)
		}
		return nil, domain.Wrap(domain.KindDependency, "read object", err)
	}
	return data, nil
}

func (b *FileBucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.Wrap(domain.KindDependency, "ensure directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.Wrap(domain.KindDependency, "write object", err)
	}
	return nil
}

func (b *FileBucket) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, map[string]string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", nil, err
	}
	url := fmt.Sprintf("%s/%s?expires=%d", b.baseURL, cleanKey, int(expires.Seconds()))
	return url, map[string]string{"Content-Type": contentType}, nil
}

func (b *FileBucket) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s?expires=%d", b.baseURL, cleanKey, int(expires.Seconds())), nil
}

// detectContentType derives a content type from the key extension, sniffing
// the payload when the key carries no extension (upload keys do not).
func detectContentType(key string, data []byte) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".heic":
		return "image/heic"
	}
	return http.DetectContentType(data)
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("blob: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("blob: invalid key")
	}
	return cleaned, nil
}

var _ Bucket = (*FileBucket)(nil)
