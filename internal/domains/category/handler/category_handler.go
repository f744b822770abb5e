package handler

import (
	"net/http"

	"marketplace-backend/internal/domains/category/model"
	"marketplace-backend/internal/domains/category/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type CategoryHandler struct {
	repo repository.RepositoryInterface
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(repo repository.RepositoryInterface) *CategoryHandler {
	return &CategoryHandler{repo: repo}
}

// List - GET /v1/categories
func (h *CategoryHandler) List(c *gin.Context) {
	merchantID := c.GetString(shared.CtxMerchantID)
	if c.GetString(shared.CtxRole) == shared.RoleAdmin {
		if override := c.Query("merchant_id"); override != "" {
			merchantID = override
		}
	}

	categories, err := h.repo.List(c.Request.Context(), merchantID)
	if err != nil {
		log.Error().Err(err).Str("merchant_id", merchantID).Msg("Failed to list categories")
		response.InternalServerError(c, "failed to list categories")
		return
	}

	response.Success(c, http.StatusOK, categories)
}

// Create - POST /v1/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req model.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", err)
		return
	}

	merchantID := c.GetString(shared.CtxMerchantID)
	if merchantID == "" {
		response.BadRequest(c, "merchant_id is required")
		return
	}

	category := &model.Category{
		MerchantID:  merchantID,
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.repo.Create(c.Request.Context(), category); err != nil {
		if err == model.ErrCategoryExists {
			response.Conflict(c, err.Error())
			return
		}
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create category")
		response.InternalServerError(c, "failed to create category")
		return
	}

	response.Success(c, http.StatusCreated, category)
}
