package repository

import (
	"context"

	"marketplace-backend/internal/domains/product/model"
)

// BulkUpsertError names one failed operation by its position in the
// submitted batch. Callers map it back to a spreadsheet row.
type BulkUpsertError struct {
	Index   int
	Message string
}

// BulkUpsertResult carries the store's own counts; callers must not tally
// independently or the numbers drift from the store's atomicity guarantees.
type BulkUpsertResult struct {
	InsertedCount int
	UpdatedCount  int
	Errors        []BulkUpsertError
}

// RepositoryInterface defines product persistence operations
type RepositoryInterface interface {
	// BulkUpsert stages one upsert per product keyed by
	// (merchant_id, import_sku) and executes them unordered: one bad row
	// never blocks the rest. A total inability to reach the store returns
	// a non-nil error with no result.
	BulkUpsert(ctx context.Context, products []*model.Product) (*BulkUpsertResult, error)

	EnsureIndexes(ctx context.Context) error

	List(ctx context.Context, merchantID string, page, limit int) ([]*model.Product, int64, error)
	GetByID(ctx context.Context, id string) (*model.Product, error)
	GetByImportSKU(ctx context.Context, merchantID, importSKU string) (*model.Product, error)

	// CountByImageKey reports how many products reference an image URL
	// ending in the given object key. The orphaned-upload sweep uses it
	// to decide whether a stored object is still in use.
	CountByImageKey(ctx context.Context, objectKey string) (int64, error)
}
