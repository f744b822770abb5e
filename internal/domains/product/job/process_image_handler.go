package job

import (
	"context"
	"encoding/json"
	"fmt"

	"marketplace-backend/internal/domains/product/service"
	"marketplace-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

type ProcessImageHandler struct {
	imageService service.ImageServiceInterface
}

// NewProcessImageHandler creates a new process image handler
func NewProcessImageHandler(imageService service.ImageServiceInterface) *ProcessImageHandler {
	return &ProcessImageHandler{imageService: imageService}
}

// ProcessTask handles imports:process_product_image
func (h *ProcessImageHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload shared.ProcessProductImagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	log.Info().
		Str("merchant_id", payload.MerchantID).
		Str("object_key", payload.ObjectKey).
		Msg("Processing product image")

	if err := h.imageService.ProcessImage(ctx, payload.MerchantID, payload.ObjectKey); err != nil {
		log.Error().
			Err(err).
			Str("object_key", payload.ObjectKey).
			Msg("Image processing failed")
		return err
	}

	return nil
}
