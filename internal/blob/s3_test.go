package blob

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func newTestS3Bucket(t *testing.T) *S3Bucket {
	t.Helper()
	b, err := NewS3Bucket(context.Background(), S3Options{
		Region:    "us-east-1",
		Endpoint:  "http://localhost:9000",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		Bucket:    "pets",
	})
	if err != nil {
		t.Fatalf("NewS3Bucket: %v", err)
	}
	return b
}

func TestPresignUploadBindsSizeLimit(t *testing.T) {
	b := newTestS3Bucket(t)

	url, fields, err := b.PresignUpload(context.Background(), UploadKey("j1"), "image/png", 15*time.Minute)
	if err != nil {
		t.Fatalf("PresignUpload: %v", err)
	}
	if !strings.Contains(url, "pets") {
		t.Errorf("url = %q, missing bucket", url)
	}
	if fields["key"] != "uploads/j1/original" {
		t.Errorf("key field = %q", fields["key"])
	}
	if fields["Content-Type"] != "image/png" {
		t.Errorf("Content-Type field = %q", fields["Content-Type"])
	}

	policyB64 := fields["policy"]
	if policyB64 == "" {
		t.Fatal("policy field missing")
	}
	policy, err := base64.StdEncoding.DecodeString(policyB64)
	if err != nil {
		t.Fatalf("decode policy: %v", err)
	}
	// The size cap and the content type must be conditions of the signed
	// policy itself, not just advice to the uploader.
	if !strings.Contains(string(policy), "content-length-range") {
		t.Errorf("policy lacks content-length-range condition: %s", policy)
	}
	if !strings.Contains(string(policy), "52428800") {
		t.Errorf("policy does not bound the payload at 50 MiB: %s", policy)
	}
	if !strings.Contains(string(policy), "image/png") {
		t.Errorf("policy does not pin the content type: %s", policy)
	}
	if fields["x-amz-signature"] == "" {
		t.Error("signature field missing")
	}
}
