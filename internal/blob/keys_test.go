package blob

import "testing"

func TestJobIDFromKey(t *testing.T) {
	cases := []struct {
		key   string
		jobID string
		ok    bool
	}{
		{"uploads/abc-123/original", "abc-123", true},
		{"uploads/abc-123/photos/cat.jpg", "abc-123", true},
		{"uploads/abc-123/", "", false},
		{"uploads/abc-123", "", false},
		{"uploads//original", "", false},
		{"generated/abc-123/avatar.png", "", false},
		{"other/abc-123/original", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		jobID, ok := JobIDFromKey(tc.key)
		if ok != tc.ok || jobID != tc.jobID {
			t.Errorf("JobIDFromKey(%q) = (%q, %v), want (%q, %v)", tc.key, jobID, ok, tc.jobID, tc.ok)
		}
	}
}

func TestUploadAndAvatarKeys(t *testing.T) {
	if got := UploadKey("j1"); got != "uploads/j1/original" {
		t.Errorf("UploadKey = %q", got)
	}
	if got := AvatarKey("j1"); got != "generated/j1/avatar.png" {
		t.Errorf("AvatarKey = %q", got)
	}
	// The upload key must round-trip through the event correlation path.
	jobID, ok := JobIDFromKey(UploadKey("j1"))
	if !ok || jobID != "j1" {
		t.Errorf("JobIDFromKey(UploadKey) = (%q, %v)", jobID, ok)
	}
}

func TestContentTypeAllowed(t *testing.T) {
	allowed := []string{
		"image/jpeg",
		"image/png",
		"image/heic",
		"image/jpg",
		"IMAGE/JPEG",
		" image/png ",
		"image/jpeg; charset=binary",
	}
	for _, ct := range allowed {
		if !ContentTypeAllowed(ct) {
			t.Errorf("ContentTypeAllowed(%q) = false, want true", ct)
		}
	}
	denied := []string{"image/gif", "image/webp", "application/pdf", "text/html", ""}
	for _, ct := range denied {
		if ContentTypeAllowed(ct) {
			t.Errorf("ContentTypeAllowed(%q) = true, want false", ct)
		}
	}
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://pets/uploads/j1/original")
	if err != nil {
		t.Fatalf("ParseS3URI: %v", err)
	}
	if bucket != "pets" || key != "uploads/j1/original" {
		t.Errorf("ParseS3URI = (%q, %q)", bucket, key)
	}

	for _, uri := range []string{"", "pets/key", "s3://", "s3://bucket", "s3://bucket/", "https://pets/key"} {
		if _, _, err := ParseS3URI(uri); err == nil {
			t.Errorf("ParseS3URI(%q) succeeded, want error", uri)
		}
	}
}

func TestS3URIRoundTrip(t *testing.T) {
	uri := S3URI("pets", "uploads/j1/original")
	bucket, key, err := ParseS3URI(uri)
	if err != nil || bucket != "pets" || key != "uploads/j1/original" {
		t.Errorf("round trip = (%q, %q, %v)", bucket, key, err)
	}
}
