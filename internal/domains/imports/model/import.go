package model

import (
	"time"
)

// ========================================
// IMPORT MODES
// ========================================

// Mode is batch-global: one value for the whole spreadsheet.
const (
	ModeURL = "url" // image_urls column, ready-to-use links
	ModeZip = "zip" // image_files column, resolved against the uploaded archive
)

// PendingPrefix marks an image reference that still needs an upload.
// ZIP-mode rows carry "pending:<filename>" until commit resolves them.
const PendingPrefix = "pending:"

// ========================================
// ROW ERROR CODES
// ========================================

const (
	CodeRequiredField   = "REQUIRED_FIELD"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeInvalidNumber   = "INVALID_NUMBER"
	CodeDuplicateSKU    = "DUPLICATE_SKU"
	CodeInvalidURL      = "INVALID_URL"
	CodeFileNotFound    = "FILE_NOT_FOUND"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeInvalidFileType = "INVALID_FILE_TYPE"
	CodeInvalidJSON     = "INVALID_JSON"
	CodeSKUTooLong      = "SKU_TOO_LONG"
	CodeSKUInvalidChars = "SKU_INVALID_CHARS"
)

// RowError is one field-level validation failure.
type RowError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ========================================
// VALIDATED ROW
// ========================================

// VariantImport is one element of a row's variants_json array.
type VariantImport struct {
	SKU           string            `json:"sku"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	MerchantPrice float64           `json:"merchantPrice"`
	DiscountPrice *float64          `json:"discountPrice,omitempty"`
	Stock         int               `json:"stock"`
	Images        []string          `json:"images,omitempty"`
	IsActive      bool              `json:"isActive"`
}

// ValidatedRow is the canonical per-row record produced by validation.
// RowIndex is 0-based and stable: it names the row in every failure report.
type ValidatedRow struct {
	RowIndex    int     `json:"rowIndex"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	// DiscountPrice is the merchant's manual override; when set it wins
	// over markup-derived pricing.
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Currency      string   `json:"currency"`
	Category      string   `json:"category"`
	Stock         int      `json:"stock"`

	// Images holds resolved URLs, or "pending:<filename>" tokens in zip mode.
	Images     []string `json:"images"`
	ImageFiles []string `json:"imageFiles,omitempty"`

	Variants []VariantImport `json:"variants,omitempty"`

	IsValid  bool       `json:"isValid"`
	Errors   []RowError `json:"errors,omitempty"`
	Warnings []string   `json:"warnings,omitempty"`
}

// AddError records a failure and flips validity.
func (r *ValidatedRow) AddError(field, message, code string) {
	r.Errors = append(r.Errors, RowError{Field: field, Message: message, Code: code})
	r.IsValid = false
}

// AddWarning records a non-fatal note. Warnings never affect validity.
func (r *ValidatedRow) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

// ========================================
// PARSE RESULT
// ========================================

// ParseResult is the batch-level aggregate returned by validation.
// validRows + invalidRows == totalRows always; counts are derived, never
// maintained independently.
type ParseResult struct {
	Rows          []ValidatedRow `json:"rows"`
	TotalRows     int            `json:"totalRows"`
	ValidRows     int            `json:"validRows"`
	InvalidRows   int            `json:"invalidRows"`
	Mode          string         `json:"mode"`
	Errors        []string       `json:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	DuplicateSkus []string       `json:"duplicateSkus,omitempty"`
}

// ========================================
// IMPORT SESSION
// ========================================

const (
	SessionStatusPending    = "pending"
	SessionStatusCommitting = "committing"
	SessionStatusCommitted  = "committed"
	SessionStatusExpired    = "expired"
)

// ImportSession bridges the stateless parse and commit calls.
// ZipData keeps the raw archive so commit can extract referenced files lazily.
type ImportSession struct {
	ID          string       `json:"id"`
	MerchantID  string       `json:"merchantId"`
	UserID      string       `json:"userId"`
	CreatedAt   time.Time    `json:"createdAt"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	Status      string       `json:"status"`
	ParseResult *ParseResult `json:"parseResult"`
	ZipData     []byte       `json:"zipData,omitempty"`
}

// IsExpired reports whether the session's TTL has elapsed.
func (s *ImportSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// ========================================
// COMMIT RESULT
// ========================================

// Commit failure reasons, one per stage of the per-row state machine.
const (
	ReasonValidationFailed  = "Validation failed"
	ReasonImageUploadFailed = "Image upload failed"
	ReasonCategoryNotFound  = "Category not found"
	ReasonStoreWriteFailed  = "Store write failed"
)

// CommitFailure names one row that did not land in the store.
type CommitFailure struct {
	RowIndex int        `json:"rowIndex"`
	SKU      string     `json:"sku"`
	Name     string     `json:"name"`
	Reason   string     `json:"reason"`
	Errors   []RowError `json:"errors,omitempty"`
}

// CommitResult aggregates one commit invocation.
// InsertedCount/UpdatedCount come from the store's reported counts.
type CommitResult struct {
	Success        bool            `json:"success"`
	TotalRows      int             `json:"totalRows"`
	InsertedCount  int             `json:"insertedCount"`
	UpdatedCount   int             `json:"updatedCount"`
	SkippedCount   int             `json:"skippedCount"`
	FailedCount    int             `json:"failedCount"`
	Failures       []CommitFailure `json:"failures,omitempty"`
	UploadedImages int             `json:"uploadedImages"`
}
