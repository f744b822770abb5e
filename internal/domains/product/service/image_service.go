package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace-backend/internal/infrastructure/storage"

	"github.com/rs/zerolog/log"
)

// ImageServiceInterface generates resized variants for uploaded product images
type ImageServiceInterface interface {
	ProcessImage(ctx context.Context, merchantID, objectKey string) error
}

type imageService struct {
	storage   *storage.MinIOStorage
	processor *storage.ImageProcessor
}

// NewImageService creates a new image service
func NewImageService(s *storage.MinIOStorage, p *storage.ImageProcessor) ImageServiceInterface {
	return &imageService{storage: s, processor: p}
}

// ProcessImage downloads the original, renders the size variants and
// stores them next to it with a suffix. Runs on the worker after commit
// so the import call never waits on image encoding.
func (s *imageService) ProcessImage(ctx context.Context, merchantID, objectKey string) error {
	data, err := s.storage.Download(ctx, objectKey)
	if err != nil {
		return fmt.Errorf("download %s: %w", objectKey, err)
	}

	if err := s.processor.ValidateImage(data); err != nil {
		// Not retryable: the object is simply not a processable image.
		log.Warn().
			Str("object_key", objectKey).
			Err(err).
			Msg("Skipping variant generation for unprocessable image")
		return nil
	}

	variants, err := s.processor.ProcessImage(data)
	if err != nil {
		return fmt.Errorf("process %s: %w", objectKey, err)
	}

	base := strings.TrimSuffix(objectKey, extOf(objectKey))
	for name, variantData := range variants {
		variantKey := fmt.Sprintf("%s_%s.jpg", base, name)
		if _, err := s.storage.Upload(ctx, variantKey, variantData, "image/jpeg"); err != nil {
			return fmt.Errorf("upload variant %s: %w", variantKey, err)
		}
	}

	log.Info().
		Str("merchant_id", merchantID).
		Str("object_key", objectKey).
		Int("variants", len(variants)).
		Msg("Generated image variants")

	return nil
}

func extOf(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[idx:]
	}
	return ""
}
