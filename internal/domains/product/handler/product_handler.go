package handler

import (
	"net/http"
	"strconv"

	"marketplace-backend/internal/domains/product/model"
	"marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type ProductHandler struct {
	repo repository.RepositoryInterface
}

// NewProductHandler creates a new product handler
func NewProductHandler(repo repository.RepositoryInterface) *ProductHandler {
	return &ProductHandler{repo: repo}
}

// List - GET /v1/products?page=1&limit=20
func (h *ProductHandler) List(c *gin.Context) {
	merchantID := c.GetString(shared.CtxMerchantID)
	if c.GetString(shared.CtxRole) == shared.RoleAdmin {
		if override := c.Query("merchant_id"); override != "" {
			merchantID = override
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	products, total, err := h.repo.List(c.Request.Context(), merchantID, page, limit)
	if err != nil {
		log.Error().Err(err).Str("merchant_id", merchantID).Msg("Failed to list products")
		response.InternalServerError(c, "failed to list products")
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, products, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: int(total),
	})
}

// GetByID - GET /v1/products/:id
func (h *ProductHandler) GetByID(c *gin.Context) {
	product, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case model.ErrInvalidID:
			response.BadRequest(c, err.Error())
		case model.ErrProductNotFound:
			response.NotFound(c, err.Error())
		default:
			log.Error().Err(err).Str("id", c.Param("id")).Msg("Failed to get product")
			response.InternalServerError(c, "failed to get product")
		}
		return
	}

	response.Success(c, http.StatusOK, product)
}
