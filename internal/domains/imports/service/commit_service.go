package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/domains/category/repository"
	"marketplace-backend/internal/domains/imports/archive"
	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/domains/imports/session"
	productModel "marketplace-backend/internal/domains/product/model"
	productRepo "marketplace-backend/internal/domains/product/repository"
	"marketplace-backend/internal/shared"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// CommitInput is one commit invocation over an already-validated batch.
type CommitInput struct {
	MerchantID        string
	Rows              []model.ValidatedRow
	Mode              string
	ZipData           []byte
	CategoryMap       map[string]string // lower-cased name -> category id
	DefaultCategoryID string
}

// CommitServiceInterface executes the parse -> commit second phase
type CommitServiceInterface interface {
	// CommitSession loads a session, enforces ownership and the
	// commit-once transition, runs the engine and disposes the session.
	CommitSession(ctx context.Context, sessionID, userID, role string) (*model.CommitResult, error)

	// Commit runs the per-row state machine against the product store.
	Commit(ctx context.Context, input CommitInput) (*model.CommitResult, error)
}

type commitService struct {
	store        session.Store
	productRepo  productRepo.RepositoryInterface
	categoryRepo repository.RepositoryInterface
	extractor    *archive.Extractor
	uploader     Uploader
	asynqClient  *asynq.Client
	cfg          config.ImportConfig
}

// NewCommitService creates a new commit service
func NewCommitService(
	store session.Store,
	productRepository productRepo.RepositoryInterface,
	categoryRepository repository.RepositoryInterface,
	extractor *archive.Extractor,
	uploader Uploader,
	asynqClient *asynq.Client,
	cfg config.ImportConfig,
) CommitServiceInterface {
	return &commitService{
		store:        store,
		productRepo:  productRepository,
		categoryRepo: categoryRepository,
		extractor:    extractor,
		uploader:     uploader,
		asynqClient:  asynqClient,
		cfg:          cfg,
	}
}

func (s *commitService) CommitSession(ctx context.Context, sessionID, userID, role string) (*model.CommitResult, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := session.ValidateAccess(sess, userID, role); err != nil {
		return nil, err
	}

	// Exactly one concurrent caller wins this transition.
	if err := s.store.BeginCommit(ctx, sessionID); err != nil {
		return nil, err
	}

	categoryMap, err := s.categoryRepo.NameIndex(ctx, sess.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}

	result, err := s.Commit(ctx, CommitInput{
		MerchantID:        sess.MerchantID,
		Rows:              sess.ParseResult.Rows,
		Mode:              sess.ParseResult.Mode,
		ZipData:           sess.ZipData,
		CategoryMap:       categoryMap,
		DefaultCategoryID: s.cfg.DefaultCategoryID,
	})
	if err != nil {
		// Store unreachable: leave the session to expire, nothing landed.
		return nil, err
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to delete committed session")
	}

	return result, nil
}

// Commit walks each row through image resolution, category resolution,
// pricing and upsert staging, then lands everything in one unordered bulk
// write. Rows fail independently; only a store-level outage aborts.
func (s *commitService) Commit(ctx context.Context, input CommitInput) (*model.CommitResult, error) {
	log.Info().
		Str("merchant_id", input.MerchantID).
		Str("mode", input.Mode).
		Int("total_rows", len(input.Rows)).
		Msg("Starting import commit")

	result := &model.CommitResult{TotalRows: len(input.Rows)}

	uploads := s.resolveArchiveUploads(ctx, input, result)

	// staged[i] remembers which row produced bulk op i, so partial bulk
	// failures map back to spreadsheet rows even after skips.
	var staged []int
	var products []*productModel.Product

	for i := range input.Rows {
		row := &input.Rows[i]

		if !row.IsValid {
			result.Failures = append(result.Failures, model.CommitFailure{
				RowIndex: row.RowIndex,
				SKU:      row.SKU,
				Name:     row.Name,
				Reason:   model.ReasonValidationFailed,
				Errors:   row.Errors,
			})
			result.SkippedCount++
			continue
		}

		images, rowErrs := s.resolveImages(row, input.Mode, uploads)
		if len(rowErrs) > 0 || len(images) == 0 {
			if len(rowErrs) == 0 {
				rowErrs = []model.RowError{{
					Field: "images", Message: "no images resolved", Code: model.CodeRequiredField,
				}}
			}
			result.Failures = append(result.Failures, model.CommitFailure{
				RowIndex: row.RowIndex,
				SKU:      row.SKU,
				Name:     row.Name,
				Reason:   model.ReasonImageUploadFailed,
				Errors:   rowErrs,
			})
			continue
		}

		categoryID, ok := s.resolveCategory(row.Category, input.CategoryMap, input.DefaultCategoryID)
		if !ok {
			result.Failures = append(result.Failures, model.CommitFailure{
				RowIndex: row.RowIndex,
				SKU:      row.SKU,
				Name:     row.Name,
				Reason:   model.ReasonCategoryNotFound,
				Errors: []model.RowError{{
					Field:   "category",
					Message: fmt.Sprintf("category %q not found and no default configured", row.Category),
					Code:    model.CodeInvalidFormat,
				}},
			})
			continue
		}

		products = append(products, s.buildProduct(row, input.MerchantID, categoryID, images))
		staged = append(staged, i)
	}

	if len(products) > 0 {
		bulkResult, err := s.productRepo.BulkUpsert(ctx, products)
		if err != nil {
			return nil, err
		}

		result.InsertedCount = bulkResult.InsertedCount
		result.UpdatedCount = bulkResult.UpdatedCount

		for _, opErr := range bulkResult.Errors {
			if opErr.Index < 0 || opErr.Index >= len(staged) {
				log.Error().Int("op_index", opErr.Index).Msg("Bulk error index out of range")
				continue
			}
			row := &input.Rows[staged[opErr.Index]]
			result.Failures = append(result.Failures, model.CommitFailure{
				RowIndex: row.RowIndex,
				SKU:      row.SKU,
				Name:     row.Name,
				Reason:   fmt.Sprintf("%s: %s", model.ReasonStoreWriteFailed, opErr.Message),
			})
		}
	}

	result.FailedCount = len(result.Failures)
	result.Success = result.FailedCount == 0

	if uploads != nil {
		s.enqueueImageProcessing(input.MerchantID, uploads)
	}

	log.Info().
		Str("merchant_id", input.MerchantID).
		Int("inserted", result.InsertedCount).
		Int("updated", result.UpdatedCount).
		Int("skipped", result.SkippedCount).
		Int("failed", result.FailedCount).
		Int("uploaded_images", result.UploadedImages).
		Msg("Import commit finished")

	return result, nil
}

// resolveArchiveUploads extracts only the files valid rows reference and
// uploads them once, dedup included. URL-mode commits skip this entirely.
func (s *commitService) resolveArchiveUploads(ctx context.Context, input CommitInput, result *model.CommitResult) *BatchUploadResult {
	if input.Mode != model.ModeZip || len(input.ZipData) == 0 {
		return nil
	}

	referenced := make(map[string]bool)
	for i := range input.Rows {
		if !input.Rows[i].IsValid {
			continue
		}
		for _, name := range input.Rows[i].ImageFiles {
			referenced[strings.ToLower(name)] = true
		}
	}
	if len(referenced) == 0 {
		return nil
	}

	names := make([]string, 0, len(referenced))
	for name := range referenced {
		names = append(names, name)
	}

	files, fileErrs, err := s.extractor.ExtractFiles(input.ZipData, names)
	if err != nil {
		// Corrupt archive: every zip row will fail image resolution below.
		log.Error().Err(err).Msg("Archive extraction failed at commit")
		return &BatchUploadResult{
			Results: map[string]*UploadResult{},
			Errors:  map[string]error{},
		}
	}

	batch := NewBatchUploader(s.uploader, s.cfg.UploadConcurrency)
	uploads := batch.UploadAll(ctx, input.MerchantID, files)
	for name, ferr := range fileErrs {
		uploads.Errors[name] = ferr
	}

	result.UploadedImages = uploads.Uploads
	return uploads
}

// resolveImages turns the row's references into durable URLs.
// The zero-image re-check is deliberate: image resolution can fail in
// ways validation could not see.
func (s *commitService) resolveImages(row *model.ValidatedRow, mode string, uploads *BatchUploadResult) ([]string, []model.RowError) {
	if mode != model.ModeZip {
		urls := make([]string, 0, len(row.Images))
		for _, img := range row.Images {
			urls = append(urls, strings.TrimPrefix(img, model.PendingPrefix))
		}
		return urls, nil
	}

	var urls []string
	var errs []model.RowError
	for _, name := range row.ImageFiles {
		key := strings.ToLower(name)

		if uploads != nil {
			if res, ok := uploads.Results[key]; ok {
				urls = append(urls, res.URL)
				continue
			}
			if uerr, ok := uploads.Errors[key]; ok {
				errs = append(errs, model.RowError{
					Field: "image_files", Message: uerr.Error(), Code: model.CodeInvalidFormat,
				})
				continue
			}
		}
		errs = append(errs, model.RowError{
			Field: "image_files", Message: fmt.Sprintf("%q not found in archive", name), Code: model.CodeFileNotFound,
		})
	}
	return urls, errs
}

func (s *commitService) resolveCategory(label string, categoryMap map[string]string, defaultID string) (string, bool) {
	if label != "" {
		if id, ok := categoryMap[strings.ToLower(strings.TrimSpace(label))]; ok {
			return id, true
		}
	}
	if defaultID != "" {
		return defaultID, true
	}
	return "", false
}

func (s *commitService) buildProduct(row *model.ValidatedRow, merchantID, categoryID string, images []string) *productModel.Product {
	pricing := PricingConfig{
		MarkupPercent:     s.cfg.MarkupPercent,
		AdjustmentPercent: s.cfg.AdjustmentPercent,
	}

	p := &productModel.Product{
		MerchantID:    merchantID,
		ImportSKU:     row.SKU,
		Name:          row.Name,
		Description:   row.Description,
		Price:         row.Price,
		DiscountPrice: row.DiscountPrice,
		FinalPrice:    FinalPrice(row.Price, row.DiscountPrice, pricing),
		Currency:      row.Currency,
		Stock:         row.Stock,
		CategoryID:    categoryID,
		Images:        images,
		IsActive:      true,
	}

	if len(row.Variants) > 0 {
		variants := make([]productModel.Variant, 0, len(row.Variants))
		minFinal := 0.0
		for i, v := range row.Variants {
			final := FinalPrice(v.MerchantPrice, v.DiscountPrice, pricing)
			variants = append(variants, productModel.Variant{
				SKU:           v.SKU,
				Attributes:    v.Attributes,
				Price:         v.MerchantPrice,
				DiscountPrice: v.DiscountPrice,
				FinalPrice:    final,
				Stock:         v.Stock,
				Images:        v.Images,
				IsActive:      v.IsActive,
			})
			if i == 0 || final < minFinal {
				minFinal = final
			}
		}
		p.Variants = variants
		// Listing price reflects the cheapest buyable configuration.
		p.FinalPrice = minFinal
	}

	return p
}

// enqueueImageProcessing defers thumbnail/variant generation to the
// worker. Best-effort: a full queue never fails a commit.
func (s *commitService) enqueueImageProcessing(merchantID string, uploads *BatchUploadResult) {
	if s.asynqClient == nil {
		return
	}

	seen := make(map[string]bool)
	for _, res := range uploads.Results {
		if seen[res.Key] {
			continue
		}
		seen[res.Key] = true

		payload, err := json.Marshal(shared.ProcessProductImagePayload{
			MerchantID: merchantID,
			ObjectKey:  res.Key,
		})
		if err != nil {
			continue
		}

		task := asynq.NewTask(shared.TypeProcessProductImage, payload)
		if _, err := s.asynqClient.Enqueue(task, asynq.Queue(shared.QueueImports), asynq.MaxRetry(2)); err != nil {
			log.Warn().
				Err(err).
				Str("object_key", res.Key).
				Msg("Failed to enqueue image processing job")
		}
	}
}
