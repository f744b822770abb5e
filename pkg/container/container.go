package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"marketplace-backend/internal/config"
	infraCache "marketplace-backend/internal/infrastructure/cache"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/infrastructure/storage"
	"marketplace-backend/pkg/cache"

	categoryHandler "marketplace-backend/internal/domains/category/handler"
	categoryRepo "marketplace-backend/internal/domains/category/repository"
	importsArchive "marketplace-backend/internal/domains/imports/archive"
	importsHandler "marketplace-backend/internal/domains/imports/handler"
	importsService "marketplace-backend/internal/domains/imports/service"
	"marketplace-backend/internal/domains/imports/session"
	productHandler "marketplace-backend/internal/domains/product/handler"
	productRepo "marketplace-backend/internal/domains/product/repository"

	"github.com/hibiken/asynq"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph. Everything in it is a
// singleton living for the process lifetime.
type Container struct {
	// Infrastructure
	Config         *config.Config
	Mongo          *database.MongoClient
	Cache          cache.Cache
	Storage        *storage.MinIOStorage
	ImageProcessor *storage.ImageProcessor
	AsynqClient    *asynq.Client

	// Import pipeline pieces
	SessionStore session.Store
	Extractor    *importsArchive.Extractor
	Uploader     importsService.Uploader

	// Repositories
	ProductRepo  productRepo.RepositoryInterface
	CategoryRepo categoryRepo.RepositoryInterface

	// Services
	ParseService  importsService.ParseServiceInterface
	CommitService importsService.CommitServiceInterface

	// Handlers
	ImportHandler   *importsHandler.ImportHandler
	ProductHandler  *productHandler.ProductHandler
	CategoryHandler *categoryHandler.CategoryHandler
}

// NewContainer builds the whole graph in dependency order:
// config -> infrastructure -> repositories -> services -> handlers.
func NewContainer() (*Container, error) {
	log.Println("🔧 Initializing DI Container...")

	c := &Container{}

	// STEP 1: configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("✅ Config loaded (Environment: %s)", cfg.App.Environment)

	// STEP 2: MongoDB
	mongo := database.NewMongoClient(cfg.Mongo)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := mongo.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	c.Mongo = mongo
	log.Println("✅ MongoDB connected")

	// STEP 3: Redis
	redisCache := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisCache.Connect(context.Background()); err != nil {
		// Redis carries sessions and jobs; with the memory session backend
		// the API can still parse and commit without it.
		log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
	} else {
		log.Println("✅ Redis connected")
	}
	c.Cache = redisCache

	// STEP 4: MinIO
	minioStorage, err := storage.NewMinIOStorage(cfg.MinIO)
	if err != nil {
		return nil, fmt.Errorf("failed to init minio: %w", err)
	}
	c.Storage = minioStorage
	c.ImageProcessor = storage.NewImageProcessor(cfg.Import.MaxImageSize)
	log.Println("✅ MinIO storage ready")

	// STEP 5: asynq client (commit enqueues image processing)
	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// STEP 6: import pipeline infrastructure
	c.Extractor = importsArchive.NewExtractor(cfg.Import.MaxArchiveSize, cfg.Import.MaxImageSize)
	c.Uploader = importsService.NewMinIOUploader(minioStorage)

	switch cfg.Import.SessionBackend {
	case "redis":
		c.SessionStore = session.NewRedisStore(c.Cache)
		log.Println("✅ Session store: redis")
	default:
		c.SessionStore = session.NewMemoryStore()
		log.Println("✅ Session store: memory")
	}

	// STEP 7: repositories
	c.ProductRepo = productRepo.NewProductRepository(mongo.Database)
	c.CategoryRepo = categoryRepo.NewCategoryRepository(mongo.Database)

	if err := c.ProductRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure product indexes: %w", err)
	}
	if err := c.CategoryRepo.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure category indexes: %w", err)
	}
	log.Println("✅ Repositories initialized")

	// STEP 8: services
	c.ParseService = importsService.NewParseService(c.SessionStore, c.Extractor, cfg.Import)
	c.CommitService = importsService.NewCommitService(
		c.SessionStore,
		c.ProductRepo,
		c.CategoryRepo,
		c.Extractor,
		c.Uploader,
		c.AsynqClient,
		cfg.Import,
	)
	log.Println("✅ Services initialized")

	// STEP 9: handlers
	c.ImportHandler = importsHandler.NewImportHandler(c.ParseService, c.CommitService, cfg.Import)
	c.ProductHandler = productHandler.NewProductHandler(c.ProductRepo)
	c.CategoryHandler = categoryHandler.NewCategoryHandler(c.CategoryRepo)
	log.Println("✅ Handlers initialized")

	log.Println("🎉 DI Container initialized successfully")
	return c, nil
}

// StartSessionSweeper runs the in-memory store's periodic eviction.
// The redis backend expires keys natively and needs no sweeper.
func (c *Container) StartSessionSweeper(ctx context.Context) {
	if ms, ok := c.SessionStore.(*session.MemoryStore); ok {
		ms.StartSweeper(ctx, c.Config.Import.SessionSweep)
		log.Printf("✅ Session sweeper started (every %s)", c.Config.Import.SessionSweep)
	}
}

// Cleanup releases connections during graceful shutdown.
func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			log.Printf("⚠️  Failed to close asynq client: %v", err)
		}
	}

	if c.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Mongo.Close(ctx); err != nil {
			log.Printf("⚠️  Failed to close mongo: %v", err)
		} else {
			log.Println("✅ MongoDB connections closed")
		}
	}

	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			log.Printf("⚠️  Failed to close Redis: %v", err)
		} else {
			log.Println("✅ Redis connections closed")
		}
	}

	log.Println("✅ Container cleanup completed")
}
