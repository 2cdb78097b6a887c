package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"petavatar/internal/domain"
)

// S3Options configures access to the storage bucket. Endpoint is optional and
// supports S3-compatible services such as MinIO.
type S3Options struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3Bucket implements Bucket on top of the AWS SDK.
type S3Bucket struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// NewS3Bucket builds the S3 client and its presigner.
func NewS3Bucket(ctx context.Context, opts S3Options) (*S3Bucket, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Bucket{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  opts.Bucket,
	}, nil
}

// Name returns the bucket name objects are stored in.
func (b *S3Bucket) Name() string { return b.bucket }

func (b *S3Bucket) Head(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ObjectInfo{}, domain.Wrap(domain.KindNotFound, "object not found: "+key, err)
		}
		return ObjectInfo{}, domain.Wrap(domain.KindDependency, "head object", err)
	}
	info := ObjectInfo{Key: key}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

func (b *S3Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, domain.Wrap(domain.KindNotFound, "object not found: "+key, err)
		}
		return nil, domain.Wrap(domain.KindDependency, "get object", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, domain.Wrap(domain.KindDependency, "read object body", err)
	}
	return data, nil
}

func (b *S3Bucket) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return domain.Wrap(domain.KindDependency, "put object", err)
	}
	return nil
}

// PresignUpload mints a POST policy rather than a plain presigned PUT: the
// policy's content-length-range caps the payload at MaxUploadBytes inside the
// credential itself, so an oversized upload is refused by the bucket before
// any object lands.
func (b *S3Bucket) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, map[string]string, error) {
	req, err := b.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = expires
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 1, MaxUploadBytes},
			[]interface{}{"eq", "$Content-Type", contentType},
		}
	})
	if err != nil {
		return "", nil, domain.Wrap(domain.KindDependency, "presign upload", err)
	}
	fields := req.Values
	fields["Content-Type"] = contentType
	return req.URL, fields, nil
}

func (b *S3Bucket) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	req, err := b.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", domain.Wrap(domain.KindDependency, "presign get", err)
	}
	return req.URL, nil
}

// isNotFound recognizes the 404-shaped errors HeadObject and GetObject return.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

var _ Bucket = (*S3Bucket)(nil)
