package main

import (
	"github.com/hibiken/asynq"

	importsJob "marketplace-backend/internal/domains/imports/job"
	productJob "marketplace-backend/internal/domains/product/job"
	productService "marketplace-backend/internal/domains/product/service"
	"marketplace-backend/internal/shared"
	"marketplace-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	processProductImage *productJob.ProcessImageHandler
	cleanupUploads      *importsJob.CleanupUploadsHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	imageSvc := productService.NewImageService(c.Storage, c.ImageProcessor)

	return &HandlerRegistry{
		processProductImage: productJob.NewProcessImageHandler(imageSvc),
		cleanupUploads:      importsJob.NewCleanupUploadsHandler(c.Storage, c.ProductRepo),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeProcessProductImage, h.processProductImage.ProcessTask)
	mux.HandleFunc(shared.TypeCleanupTempUploads, h.cleanupUploads.ProcessTask)
}
