package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"marketplace-backend/internal/domains/imports/archive"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUploader records calls and fails filenames listed in failOn.
type fakeUploader struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]bool
}

func (f *fakeUploader) Upload(_ context.Context, merchantID, filename string, _ []byte) (*UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, filename)

	if f.failOn[filename] {
		return nil, &UploadError{Filename: filename, Err: errors.New("storage unavailable")}
	}

	key := fmt.Sprintf("merchants/%s/products/%s", merchantID, filename)
	return &UploadResult{URL: "http://store.local/" + key, Key: key}, nil
}

func entry(name, content string) *archive.FileEntry {
	return &archive.FileEntry{
		Filename: name,
		Data:     []byte(content),
		Size:     int64(len(content)),
		MimeType: archive.MimeTypeFor(name),
	}
}

func TestUploadAllDistinctFiles(t *testing.T) {
	up := &fakeUploader{}
	batch := NewBatchUploader(up, 3)

	files := map[string]*archive.FileEntry{
		"a.jpg": entry("a.jpg", "content-a"),
		"b.jpg": entry("b.jpg", "content-b"),
	}

	out := batch.UploadAll(context.Background(), "m1", files)

	assert.Equal(t, 2, out.Uploads)
	assert.Len(t, out.Results, 2)
	assert.Empty(t, out.Errors)
	assert.NotEqual(t, out.Results["a.jpg"].URL, out.Results["b.jpg"].URL)
}

func TestUploadAllDedupsByContent(t *testing.T) {
	up := &fakeUploader{}
	batch := NewBatchUploader(up, 3)

	files := map[string]*archive.FileEntry{
		"front.jpg": entry("front.jpg", "same-bytes"),
		"copy.jpg":  entry("copy.jpg", "same-bytes"),
		"other.jpg": entry("other.jpg", "different"),
	}

	out := batch.UploadAll(context.Background(), "m1", files)

	assert.Equal(t, 2, out.Uploads)
	assert.Len(t, up.calls, 2)
	require.Len(t, out.Results, 3)
	// Duplicates share one stored object.
	assert.Equal(t, out.Results["front.jpg"].URL, out.Results["copy.jpg"].URL)
	assert.NotEqual(t, out.Results["front.jpg"].URL, out.Results["other.jpg"].URL)
}

func TestUploadAllPerFileFailureDoesNotAbort(t *testing.T) {
	up := &fakeUploader{failOn: map[string]bool{"bad.jpg": true}}
	batch := NewBatchUploader(up, 3)

	files := map[string]*archive.FileEntry{
		"bad.jpg":  entry("bad.jpg", "doomed"),
		"good.jpg": entry("good.jpg", "fine"),
	}

	out := batch.UploadAll(context.Background(), "m1", files)

	assert.Equal(t, 1, out.Uploads)
	assert.Contains(t, out.Results, "good.jpg")
	require.Contains(t, out.Errors, "bad.jpg")
	assert.Contains(t, out.Errors["bad.jpg"].Error(), "bad.jpg")
}

func TestUploadAllFailureFansOutToDuplicates(t *testing.T) {
	// All duplicate names share the representative's fate.
	up := &fakeUploader{failOn: map[string]bool{"one.jpg": true, "two.jpg": true}}
	batch := NewBatchUploader(up, 1)

	files := map[string]*archive.FileEntry{
		"one.jpg": entry("one.jpg", "identical"),
		"two.jpg": entry("two.jpg", "identical"),
	}

	out := batch.UploadAll(context.Background(), "m1", files)

	assert.Equal(t, 0, out.Uploads)
	assert.Len(t, out.Errors, 2)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo"},
		{"my photo (1).jpg", "my_photo_1"},
		{"___x___.png", "x"},
		{"%%%.jpg", "image"},
		{strings.Repeat("a", 60) + ".jpg", strings.Repeat("a", 40)},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "input %q", tt.in)
	}
}

func TestFingerprint(t *testing.T) {
	a := fingerprint([]byte("hello world"))
	b := fingerprint([]byte("hello world"))
	c := fingerprint([]byte("hello worle"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	// Length is part of the identity even when the sampled prefix matches.
	big := make([]byte, fingerprintSampleSize+10)
	bigger := make([]byte, fingerprintSampleSize+20)
	assert.NotEqual(t, fingerprint(big), fingerprint(bigger))
}
