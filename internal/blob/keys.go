package blob

import (
	"fmt"
	"regexp"
	"strings"

	"petavatar/internal/domain"
)

// Object key conventions. The first path segment after the uploads prefix is
// always the job identifier; that convention is the sole mechanism for
// correlating an anonymous storage event to a job.
const (
	uploadPrefix    = "uploads/"
	generatedPrefix = "generated/"
)

// MaxUploadBytes caps accepted source images at 50 MiB.
const MaxUploadBytes = 50 * 1024 * 1024

var uploadKeyPattern = regexp.MustCompile(`^uploads/([^/]+)/.+$`)

// allowedContentTypes is the upload format allow-list.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/heic": {},
}

// ContentTypeAllowed reports whether ct is an accepted source image format.
func ContentTypeAllowed(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	_, ok := allowedContentTypes[ct]
	return ok
}

// UploadKey returns the canonical storage key for a job's source image.
func UploadKey(jobID string) string {
	return uploadPrefix + jobID + "/original"
}

// AvatarKey returns the canonical storage key for a job's generated avatar.
func AvatarKey(jobID string) string {
	return generatedPrefix + jobID + "/avatar.png"
}

// JobIDFromKey extracts the job identifier embedded in an upload key.
// Keys outside the uploads namespace yield ok=false.
func JobIDFromKey(key string) (jobID string, ok bool) {
	m := uploadKeyPattern.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseS3URI splits an s3://bucket/key reference. Malformed references are
// reported as ValidationError.
func ParseS3URI(uri string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", domain.Ef(domain.KindValidation, "invalid s3 uri %q: missing s3:// scheme", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", domain.Ef(domain.KindValidation, "invalid s3 uri %q: expected s3://bucket/key", uri)
	}
	return bucket, key, nil
}

// S3URI formats a bucket/key pair back into an s3:// reference.
func S3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
