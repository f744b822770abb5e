package service

import (
	"context"
	"fmt"
	"hash/crc32"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"

	"marketplace-backend/internal/domains/imports/archive"
	"marketplace-backend/internal/infrastructure/storage"

	"github.com/rs/xid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// UploadResult is one stored image.
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Uploader stores a single image and returns its durable URL.
type Uploader interface {
	Upload(ctx context.Context, merchantID, filename string, data []byte) (*UploadResult, error)
}

// UploadError carries the offending filename so callers can attribute the
// failure to a row.
type UploadError struct {
	Filename string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Filename, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ========================================
// MINIO UPLOADER
// ========================================

type minioUploader struct {
	storage *storage.MinIOStorage
}

// NewMinIOUploader wraps MinIO as an import image destination.
func NewMinIOUploader(s *storage.MinIOStorage) Uploader {
	return &minioUploader{storage: s}
}

// Upload namespaces objects by merchant and upload year/month so images
// can be managed per merchant per period. The xid suffix makes the key
// collision-proof regardless of what the sanitizer keeps.
func (u *minioUploader) Upload(ctx context.Context, merchantID, filename string, data []byte) (*UploadResult, error) {
	now := time.Now()
	key := fmt.Sprintf("merchants/%s/products/%d/%02d/%s_%s%s",
		merchantID, now.Year(), int(now.Month()),
		sanitizeFilename(filename), xid.New().String(),
		strings.ToLower(path.Ext(filename)))

	url, err := u.storage.Upload(ctx, key, data, archive.MimeTypeFor(filename))
	if err != nil {
		return nil, &UploadError{Filename: filename, Err: err}
	}

	return &UploadResult{URL: url, Key: key}, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
var underscoreRuns = regexp.MustCompile(`_+`)

const maxSanitizedBase = 40

// sanitizeFilename reduces the base name to [A-Za-z0-9_-], collapses
// repeated underscores and caps the length. The extension is handled by
// the caller.
func sanitizeFilename(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	base = underscoreRuns.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "image"
	}
	if len(base) > maxSanitizedBase {
		base = base[:maxSanitizedBase]
	}
	return base
}

// ========================================
// BATCH UPLOAD WITH CONTENT DEDUP
// ========================================

const fingerprintSampleSize = 64 * 1024

// fingerprint is a cheap content identity: size plus a CRC of the byte
// prefix. Probabilistic, not cryptographic - a rare collision shares an
// image URL between rows, it never corrupts data.
func fingerprint(data []byte) string {
	sample := data
	if len(sample) > fingerprintSampleSize {
		sample = sample[:fingerprintSampleSize]
	}
	return fmt.Sprintf("%d:%08x", len(data), crc32.ChecksumIEEE(sample))
}

// BatchUploadResult maps filenames back to their outcome. Results are
// keyed, never positional: the concurrent pool completes out of order.
type BatchUploadResult struct {
	Results map[string]*UploadResult
	Errors  map[string]error
	// Uploads counts actual upload calls; deduplicated files share one.
	Uploads int
}

type batchUploader struct {
	uploader    Uploader
	concurrency int
}

// NewBatchUploader wraps an Uploader with commit-scoped dedup and a
// bounded concurrency window.
func NewBatchUploader(u Uploader, concurrency int) *batchUploader {
	if concurrency < 1 {
		concurrency = 5
	}
	return &batchUploader{uploader: u, concurrency: concurrency}
}

// UploadAll uploads each distinct content fingerprint exactly once and
// fans the resulting URL out to every filename that shares it. Failures
// are per-fingerprint: one bad file never aborts the batch.
func (b *batchUploader) UploadAll(ctx context.Context, merchantID string, files map[string]*archive.FileEntry) *BatchUploadResult {
	out := &BatchUploadResult{
		Results: make(map[string]*UploadResult, len(files)),
		Errors:  make(map[string]error),
	}

	// Group filenames by content so duplicates cost one upload.
	groups := make(map[string][]string)
	representative := make(map[string]*archive.FileEntry)
	for name, entry := range files {
		fp := fingerprint(entry.Data)
		groups[fp] = append(groups[fp], name)
		if _, ok := representative[fp]; !ok {
			representative[fp] = entry
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for fp, names := range groups {
		entry := representative[fp]
		g.Go(func() error {
			res, err := b.uploader.Upload(gctx, merchantID, entry.Filename, entry.Data)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				for _, name := range names {
					out.Errors[name] = err
				}
				log.Warn().
					Err(err).
					Str("filename", entry.Filename).
					Msg("Image upload failed")
				return nil // per-file failure, keep the batch going
			}
			out.Uploads++
			for _, name := range names {
				out.Results[name] = res
			}
			return nil
		})
	}

	// Workers never return errors; Wait only observes ctx cancellation.
	_ = g.Wait()

	return out
}
