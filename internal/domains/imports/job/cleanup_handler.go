package job

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	productRepo "marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// uploadsPrefix is where the import uploader writes originals.
const uploadsPrefix = "merchants/"

var variantSuffix = regexp.MustCompile(`_(large|medium|thumbnail)\.jpg$`)

// variantKeysFor returns the derived-variant keys for an original.
func variantKeysFor(key string) []string {
	base := key
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}
	return []string{
		base + "_large.jpg",
		base + "_medium.jpg",
		base + "_thumbnail.jpg",
	}
}

type CleanupUploadsHandler struct {
	storage     *storage.MinIOStorage
	productRepo productRepo.RepositoryInterface
}

// NewCleanupUploadsHandler creates a new cleanup handler
func NewCleanupUploadsHandler(s *storage.MinIOStorage, repo productRepo.RepositoryInterface) *CleanupUploadsHandler {
	return &CleanupUploadsHandler{storage: s, productRepo: repo}
}

// ProcessTask handles imports:cleanup_temp_uploads.
// A commit that uploads images and then fails its bulk write (or crashes
// in between) leaves objects no product references. This sweep removes
// them once they are old enough that no in-flight commit can still claim
// them.
func (h *CleanupUploadsHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.CleanupTempUploadsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OlderThanHours <= 0 {
		payload.OlderThanHours = 24
	}

	cutoff := time.Now().Add(-time.Duration(payload.OlderThanHours) * time.Hour)

	keys, err := h.storage.ListOlderThan(ctx, uploadsPrefix, cutoff)
	if err != nil {
		return fmt.Errorf("list uploads: %w", err)
	}

	var orphans []string
	for _, key := range keys {
		// Derived variants are never referenced directly; they live and
		// die with their original.
		if variantSuffix.MatchString(key) {
			continue
		}

		count, err := h.productRepo.CountByImageKey(ctx, key)
		if err != nil {
			log.Warn().Err(err).Str("object_key", key).Msg("Reference check failed; keeping object")
			continue
		}
		if count == 0 {
			orphans = append(orphans, key)
			orphans = append(orphans, variantKeysFor(key)...)
		}
	}

	if len(orphans) == 0 {
		log.Info().Int("scanned", len(keys)).Msg("No orphaned uploads found")
		return nil
	}

	if err := h.storage.RemoveObjects(ctx, orphans); err != nil {
		return fmt.Errorf("remove orphaned uploads: %w", err)
	}

	log.Info().
		Int("scanned", len(keys)).
		Int("removed", len(orphans)).
		Msg("Removed orphaned import uploads")

	return nil
}
