package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/pkg/container"

	"github.com/gin-gonic/gin"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", healthCheckHandler(c))

		setupImportRoutes(v1, c)
		setupProductRoutes(v1, c)
		setupCategoryRoutes(v1, c)
	}

	return router
}

// ========================================
// IMPORT ROUTES
// ========================================
func setupImportRoutes(v1 *gin.RouterGroup, c *container.Container) {
	imports := v1.Group("/imports")
	imports.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
	{
		imports.POST("/parse", c.ImportHandler.Parse)
		imports.POST("/commit", c.ImportHandler.Commit)
		imports.POST("/failures", c.ImportHandler.DownloadFailures)
		imports.GET("/template.csv", c.ImportHandler.TemplateCSV)
		imports.GET("/template.xlsx", c.ImportHandler.TemplateXLSX)
	}
}

// ========================================
// PRODUCT ROUTES
// ========================================
func setupProductRoutes(v1 *gin.RouterGroup, c *container.Container) {
	products := v1.Group("/products")
	products.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
	{
		products.GET("", c.ProductHandler.List)
		products.GET("/:id", c.ProductHandler.GetByID)
	}
}

// ========================================
// CATEGORY ROUTES
// ========================================
func setupCategoryRoutes(v1 *gin.RouterGroup, c *container.Container) {
	categories := v1.Group("/categories")
	categories.Use(middleware.AuthMiddleware(c.Config.JWT.Secret))
	{
		categories.GET("", c.CategoryHandler.List)
		categories.POST("", c.CategoryHandler.Create)
	}
}

// ========================================
// HEALTH CHECK HANDLER
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   getEnv("APP_VERSION", "1.0.0"),
			"services":  gin.H{},
		}

		// Check database
		dbStatus := "ok"
		if appCtx.Mongo == nil {
			dbStatus = "disconnected"
			health["status"] = "degraded"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Mongo.HealthCheck(ctx); err != nil {
				dbStatus = fmt.Sprintf("error: %v", err)
				health["status"] = "degraded"
			}
		}

		// Check redis
		redisStatus := "ok"
		if appCtx.Cache == nil {
			redisStatus = "disconnected"
		} else {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()

			if err := appCtx.Cache.Ping(ctx); err != nil {
				redisStatus = fmt.Sprintf("error: %v", err)
			}
		}

		health["services"] = gin.H{
			"database": dbStatus,
			"redis":    redisStatus,
		}

		statusCode := http.StatusOK
		if dbStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, health)
	}
}
