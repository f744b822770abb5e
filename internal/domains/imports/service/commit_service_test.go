package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"marketplace-backend/internal/config"
	categoryModel "marketplace-backend/internal/domains/category/model"
	importsArchive "marketplace-backend/internal/domains/imports/archive"
	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/domains/imports/session"
	productModel "marketplace-backend/internal/domains/product/model"
	productRepo "marketplace-backend/internal/domains/product/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProductRepo records BulkUpsert batches and replays scripted results.
type fakeProductRepo struct {
	batches [][]*productModel.Product
	result  *productRepo.BulkUpsertResult
	err     error
	// byImportSKU simulates upsert-by-natural-key so repeated commits
	// report updates instead of inserts.
	byImportSKU map[string]bool
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{byImportSKU: make(map[string]bool)}
}

func (f *fakeProductRepo) BulkUpsert(_ context.Context, products []*productModel.Product) (*productRepo.BulkUpsertResult, error) {
	f.batches = append(f.batches, products)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}

	res := &productRepo.BulkUpsertResult{}
	for _, p := range products {
		key := p.MerchantID + "/" + p.ImportSKU
		if f.byImportSKU[key] {
			res.UpdatedCount++
		} else {
			f.byImportSKU[key] = true
			res.InsertedCount++
		}
	}
	return res, nil
}

func (f *fakeProductRepo) EnsureIndexes(context.Context) error { return nil }

func (f *fakeProductRepo) List(context.Context, string, int, int) ([]*productModel.Product, int64, error) {
	return nil, 0, nil
}

func (f *fakeProductRepo) GetByID(context.Context, string) (*productModel.Product, error) {
	return nil, productModel.ErrProductNotFound
}

func (f *fakeProductRepo) GetByImportSKU(context.Context, string, string) (*productModel.Product, error) {
	return nil, productModel.ErrProductNotFound
}

func (f *fakeProductRepo) CountByImageKey(context.Context, string) (int64, error) { return 0, nil }

type fakeCategoryRepo struct {
	nameIndex map[string]string
}

func (f *fakeCategoryRepo) Create(context.Context, *categoryModel.Category) error { return nil }

func (f *fakeCategoryRepo) List(context.Context, string) ([]*categoryModel.Category, error) {
	return nil, nil
}

func (f *fakeCategoryRepo) FindByName(context.Context, string, string) (*categoryModel.Category, error) {
	return nil, categoryModel.ErrCategoryNotFound
}

func (f *fakeCategoryRepo) NameIndex(context.Context, string) (map[string]string, error) {
	return f.nameIndex, nil
}

func (f *fakeCategoryRepo) EnsureIndexes(context.Context) error { return nil }

func testConfig() config.ImportConfig {
	return config.ImportConfig{
		SessionTTL:        15 * time.Minute,
		MaxArchiveSize:    50 * 1024 * 1024,
		MaxImageSize:      5 * 1024 * 1024,
		UploadConcurrency: 2,
		MarkupPercent:     10,
		DefaultCurrency:   "USD",
	}
}

func newTestCommitService(repo *fakeProductRepo, cats *fakeCategoryRepo, store session.Store, up Uploader) *commitService {
	return &commitService{
		store:        store,
		productRepo:  repo,
		categoryRepo: cats,
		extractor:    importsArchive.NewExtractor(0, 0),
		uploader:     up,
		cfg:          testConfig(),
	}
}

func validURLRow(index int, sku string) model.ValidatedRow {
	return model.ValidatedRow{
		RowIndex: index,
		SKU:      sku,
		Name:     "Product " + sku,
		Price:    19.99,
		Currency: "USD",
		Stock:    5,
		Images:   []string{"https://example.com/" + sku + ".jpg"},
		IsValid:  true,
	}
}

func TestCommitURLModeHappyPath(t *testing.T) {
	repo := newFakeProductRepo()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{validURLRow(0, "A1"), validURLRow(1, "B2")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.InsertedCount)
	assert.Equal(t, 0, result.UpdatedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Failures)

	require.Len(t, repo.batches, 1)
	p := repo.batches[0][0]
	assert.Equal(t, "m1", p.MerchantID)
	assert.Equal(t, "A1", p.ImportSKU)
	assert.Equal(t, "cat-default", p.CategoryID)
	assert.InDelta(t, 21.989, p.FinalPrice, 1e-9)
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{"https://example.com/A1.jpg"}, p.Images)
}

func TestCommitIsIdempotent(t *testing.T) {
	repo := newFakeProductRepo()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	input := CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{validURLRow(0, "A1"), validURLRow(1, "B2")},
		DefaultCategoryID: "cat-default",
	}

	first, err := svc.Commit(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 2, first.InsertedCount)

	second, err := svc.Commit(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, second.InsertedCount)
	assert.Equal(t, 2, second.UpdatedCount)
	assert.True(t, second.Success)
}

func TestCommitSkipsInvalidRows(t *testing.T) {
	repo := newFakeProductRepo()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	invalid := model.ValidatedRow{
		RowIndex: 0, SKU: "", Name: "Broken", IsValid: false,
		Errors: []model.RowError{{Field: "sku", Message: "sku is required", Code: model.CodeRequiredField}},
	}

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{invalid, validURLRow(1, "B2")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.SkippedCount)
	assert.Equal(t, 1, result.InsertedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, model.ReasonValidationFailed, result.Failures[0].Reason)
	assert.Equal(t, 0, result.Failures[0].RowIndex)
}

func TestCommitCategoryResolution(t *testing.T) {
	cats := &fakeCategoryRepo{nameIndex: map[string]string{"widgets": "cat-widgets"}}

	t.Run("named category resolves case-insensitively", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := newTestCommitService(repo, cats, nil, nil)

		row := validURLRow(0, "A1")
		row.Category = "Widgets"

		result, err := svc.Commit(context.Background(), CommitInput{
			MerchantID:  "m1",
			Mode:        model.ModeURL,
			Rows:        []model.ValidatedRow{row},
			CategoryMap: cats.nameIndex,
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "cat-widgets", repo.batches[0][0].CategoryID)
	})

	t.Run("unknown category falls back to default", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := newTestCommitService(repo, cats, nil, nil)

		row := validURLRow(0, "A1")
		row.Category = "Nonexistent"

		result, err := svc.Commit(context.Background(), CommitInput{
			MerchantID:        "m1",
			Mode:              model.ModeURL,
			Rows:              []model.ValidatedRow{row},
			CategoryMap:       cats.nameIndex,
			DefaultCategoryID: "cat-default",
		})

		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "cat-default", repo.batches[0][0].CategoryID)
	})

	t.Run("unknown category with no default fails the row", func(t *testing.T) {
		repo := newFakeProductRepo()
		svc := newTestCommitService(repo, cats, nil, nil)

		row := validURLRow(0, "A1")
		row.Category = "Nonexistent"

		result, err := svc.Commit(context.Background(), CommitInput{
			MerchantID:  "m1",
			Mode:        model.ModeURL,
			Rows:        []model.ValidatedRow{row},
			CategoryMap: cats.nameIndex,
		})

		require.NoError(t, err)
		assert.False(t, result.Success)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, model.ReasonCategoryNotFound, result.Failures[0].Reason)
		assert.Empty(t, repo.batches)
	})
}

func TestCommitPartialBulkFailureMapsToRows(t *testing.T) {
	repo := newFakeProductRepo()
	// Op index 1 fails; ops are staged after skipping the invalid row, so
	// op 1 is the third spreadsheet row.
	repo.result = &productRepo.BulkUpsertResult{
		InsertedCount: 1,
		Errors:        []productRepo.BulkUpsertError{{Index: 1, Message: "write conflict"}},
	}
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	invalid := model.ValidatedRow{RowIndex: 0, SKU: "X", IsValid: false,
		Errors: []model.RowError{{Field: "price", Message: "bad", Code: model.CodeInvalidNumber}}}

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{invalid, validURLRow(1, "B2"), validURLRow(2, "C3")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.InsertedCount)
	require.Len(t, result.Failures, 2)

	storeFailure := result.Failures[1]
	assert.Equal(t, 2, storeFailure.RowIndex)
	assert.Equal(t, "C3", storeFailure.SKU)
	assert.Contains(t, storeFailure.Reason, model.ReasonStoreWriteFailed)
	assert.Contains(t, storeFailure.Reason, "write conflict")
}

func TestCommitStoreOutageAborts(t *testing.T) {
	repo := newFakeProductRepo()
	repo.err = errors.New("connection refused")
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{validURLRow(0, "A1")},
		DefaultCategoryID: "cat-default",
	})

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestCommitVariantPricing(t *testing.T) {
	repo := newFakeProductRepo()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, nil)

	row := validURLRow(0, "A1")
	row.Variants = []model.VariantImport{
		{SKU: "A1-S", MerchantPrice: 10, Stock: 3, IsActive: true},
		{SKU: "A1-L", MerchantPrice: 20, Stock: 1, IsActive: true},
	}

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeURL,
		Rows:              []model.ValidatedRow{row},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	require.True(t, result.Success)

	p := repo.batches[0][0]
	require.Len(t, p.Variants, 2)
	assert.InDelta(t, 11, p.Variants[0].FinalPrice, 1e-9)
	assert.InDelta(t, 22, p.Variants[1].FinalPrice, 1e-9)
	// Listing price is the cheapest variant, not the product's own price.
	assert.InDelta(t, 11, p.FinalPrice, 1e-9)
}

func buildCommitZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zipRow(index int, sku string, files ...string) model.ValidatedRow {
	row := model.ValidatedRow{
		RowIndex: index,
		SKU:      sku,
		Name:     "Product " + sku,
		Price:    10,
		Currency: "USD",
		IsValid:  true,
	}
	for _, f := range files {
		row.ImageFiles = append(row.ImageFiles, f)
		row.Images = append(row.Images, model.PendingPrefix+f)
	}
	return row
}

func TestCommitZipModeUploadsReferencedImages(t *testing.T) {
	repo := newFakeProductRepo()
	up := &fakeUploader{}
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, up)

	zipData := buildCommitZip(t, map[string][]byte{
		"a.jpg":      []byte("content-a"),
		"b.jpg":      []byte("content-b"),
		"unused.jpg": []byte("never referenced"),
	})

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeZip,
		ZipData:           zipData,
		Rows:              []model.ValidatedRow{zipRow(0, "A1", "a.jpg"), zipRow(1, "B2", "b.jpg")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.UploadedImages)
	// Only referenced files are uploaded.
	assert.Len(t, up.calls, 2)
	assert.NotContains(t, up.calls, "unused.jpg")

	p := repo.batches[0][0]
	require.Len(t, p.Images, 1)
	assert.Contains(t, p.Images[0], "http://store.local/")
}

func TestCommitZipModeDedupAcrossRows(t *testing.T) {
	repo := newFakeProductRepo()
	up := &fakeUploader{}
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, up)

	zipData := buildCommitZip(t, map[string][]byte{
		"one.jpg": []byte("identical-bytes"),
		"two.jpg": []byte("identical-bytes"),
	})

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeZip,
		ZipData:           zipData,
		Rows:              []model.ValidatedRow{zipRow(0, "A1", "one.jpg"), zipRow(1, "B2", "two.jpg")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.UploadedImages)
	assert.Equal(t, repo.batches[0][0].Images[0], repo.batches[0][1].Images[0])
}

func TestCommitZipModeUploadFailureFailsRow(t *testing.T) {
	repo := newFakeProductRepo()
	up := &fakeUploader{failOn: map[string]bool{"bad.jpg": true}}
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, up)

	zipData := buildCommitZip(t, map[string][]byte{
		"bad.jpg":  []byte("doomed"),
		"good.jpg": []byte("fine"),
	})

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeZip,
		ZipData:           zipData,
		Rows:              []model.ValidatedRow{zipRow(0, "A1", "bad.jpg"), zipRow(1, "B2", "good.jpg")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.InsertedCount)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 0, result.Failures[0].RowIndex)
	assert.Equal(t, model.ReasonImageUploadFailed, result.Failures[0].Reason)
}

func TestCommitZipModeMissingFileFailsRow(t *testing.T) {
	repo := newFakeProductRepo()
	up := &fakeUploader{}
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, nil, up)

	zipData := buildCommitZip(t, map[string][]byte{"present.jpg": []byte("img")})

	result, err := svc.Commit(context.Background(), CommitInput{
		MerchantID:        "m1",
		Mode:              model.ModeZip,
		ZipData:           zipData,
		Rows:              []model.ValidatedRow{zipRow(0, "A1", "absent.jpg")},
		DefaultCategoryID: "cat-default",
	})

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, model.ReasonImageUploadFailed, result.Failures[0].Reason)
	require.Len(t, result.Failures[0].Errors, 1)
	assert.Equal(t, model.CodeFileNotFound, result.Failures[0].Errors[0].Code)
}

func TestCommitSessionLifecycle(t *testing.T) {
	repo := newFakeProductRepo()
	store := session.NewMemoryStore()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, store, nil)
	svc.cfg.DefaultCategoryID = "cat-default"
	ctx := context.Background()

	parseResult := &model.ParseResult{
		Rows:      []model.ValidatedRow{validURLRow(0, "A1")},
		Mode:      model.ModeURL,
		TotalRows: 1,
		ValidRows: 1,
	}
	sess := session.New("m1", "user-1", parseResult, nil, time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	result, err := svc.CommitSession(ctx, sess.ID, "user-1", "merchant")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.InsertedCount)

	// The session is single-use.
	_, err = svc.CommitSession(ctx, sess.ID, "user-1", "merchant")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestCommitSessionOwnership(t *testing.T) {
	repo := newFakeProductRepo()
	store := session.NewMemoryStore()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, store, nil)
	ctx := context.Background()

	sess := session.New("m1", "user-1", &model.ParseResult{Mode: model.ModeURL}, nil, time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	_, err := svc.CommitSession(ctx, sess.ID, "intruder", "merchant")
	assert.ErrorIs(t, err, model.ErrSessionForbidden)

	// A denied caller must not burn the session's commit slot.
	_, err = svc.CommitSession(ctx, sess.ID, "user-1", "merchant")
	assert.NoError(t, err)
}

func TestCommitSessionStoreOutageKeepsSession(t *testing.T) {
	repo := newFakeProductRepo()
	repo.err = errors.New("mongo down")
	store := session.NewMemoryStore()
	svc := newTestCommitService(repo, &fakeCategoryRepo{}, store, nil)
	svc.cfg.DefaultCategoryID = "cat-default"
	ctx := context.Background()

	parseResult := &model.ParseResult{
		Rows: []model.ValidatedRow{validURLRow(0, "A1")},
		Mode: model.ModeURL,
	}
	sess := session.New("m1", "user-1", parseResult, nil, time.Minute)
	require.NoError(t, store.Create(ctx, sess))

	_, err := svc.CommitSession(ctx, sess.ID, "user-1", "merchant")
	require.Error(t, err)

	// The session still exists; it will expire rather than be consumed.
	got, gerr := store.Get(ctx, sess.ID)
	require.NoError(t, gerr)
	assert.Equal(t, model.SessionStatusCommitting, got.Status)
}
