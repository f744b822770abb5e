package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"marketplace-backend/internal/domains/imports/archive"
	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/domains/imports/parser"
)

const maxSKULength = 64

// Options carries the batch-level context validation needs.
// ZipFileIndex is the archive's file index (lower-cased basenames);
// nil means no archive was uploaded.
type Options struct {
	ZipFileIndex    map[string]bool
	DefaultCurrency string
}

// ValidateRows normalizes raw rows into a ParseResult.
// Mode is detected once for the whole batch, per-row checks are
// independent and order-preserving, and duplicate SKUs are resolved
// first-seen-wins across the batch.
func ValidateRows(rows []parser.Row, opts Options) *model.ParseResult {
	result := &model.ParseResult{
		Rows:      make([]model.ValidatedRow, 0, len(rows)),
		TotalRows: len(rows),
	}

	result.Mode = detectMode(rows, result)

	if result.Mode == model.ModeZip && opts.ZipFileIndex == nil {
		result.Errors = append(result.Errors, model.ErrZipRequired.Error())
	}

	defaultCurrency := opts.DefaultCurrency
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}

	for i, raw := range rows {
		row := validateRow(i, raw, result.Mode, opts.ZipFileIndex, defaultCurrency)
		result.Rows = append(result.Rows, row)
	}

	markDuplicateSkus(result)

	// Counts are derived so validRows + invalidRows == totalRows holds by
	// construction.
	for i := range result.Rows {
		result.Rows[i].IsValid = len(result.Rows[i].Errors) == 0
		if result.Rows[i].IsValid {
			result.ValidRows++
		} else {
			result.InvalidRows++
		}
	}

	return result
}

// detectMode scans the batch once. Archive filenames win over URLs: a
// mixed file degrades to zip with a warning rather than silently dropping
// one column.
func detectMode(rows []parser.Row, result *model.ParseResult) string {
	hasFiles := false
	hasURLs := false
	for _, r := range rows {
		if r.ImageFiles != "" {
			hasFiles = true
		}
		if r.ImageURLs != "" {
			hasURLs = true
		}
	}

	if hasFiles {
		if hasURLs {
			result.Warnings = append(result.Warnings,
				"both image_files and image_urls are populated; image_urls will be ignored (ZIP mode)")
		}
		return model.ModeZip
	}
	return model.ModeURL
}

func validateRow(index int, raw parser.Row, mode string, zipIndex map[string]bool, defaultCurrency string) model.ValidatedRow {
	row := model.ValidatedRow{
		RowIndex:    index,
		SKU:         raw.SKU,
		Name:        raw.Name,
		Description: raw.Description,
		Currency:    raw.Currency,
		Category:    raw.Category,
		IsValid:     true,
	}

	validateSKU(&row)

	if row.Name == "" {
		row.AddError("name", "name is required", model.CodeRequiredField)
	}

	row.Price = parsePrice(&row, "price", raw.Price, true)
	if raw.DiscountPrice != "" {
		discount := parsePrice(&row, "discount_price", raw.DiscountPrice, false)
		row.DiscountPrice = &discount
	}

	row.Stock = parseStock(&row, raw.Stock)

	if row.Currency == "" {
		row.Currency = defaultCurrency
	}

	if row.Description == "" {
		row.AddWarning("description is empty; a placeholder will be used")
	}
	if row.Category == "" {
		row.AddWarning("category is empty; the default category will be used")
	}

	switch mode {
	case model.ModeZip:
		validateZipImages(&row, raw.ImageFiles, zipIndex)
	default:
		validateURLImages(&row, raw.ImageURLs)
	}

	if raw.VariantsJSON != "" {
		row.Variants = parseVariants(&row, raw.VariantsJSON)
	}

	return row
}

func validateSKU(row *model.ValidatedRow) {
	if row.SKU == "" {
		row.AddError("sku", "sku is required", model.CodeRequiredField)
		return
	}
	if len(row.SKU) > maxSKULength {
		row.AddError("sku", fmt.Sprintf("sku exceeds %d characters", maxSKULength), model.CodeSKUTooLong)
	}
	if strings.ContainsFunc(row.SKU, unicode.IsSpace) {
		row.AddError("sku", "sku must not contain whitespace", model.CodeSKUInvalidChars)
	}
}

// parsePrice fails hard but still returns 0 so the row shape stays total:
// the errors list is authoritative for validity, not the field value.
func parsePrice(row *model.ValidatedRow, field, value string, required bool) float64 {
	if value == "" {
		if required {
			row.AddError(field, field+" is required", model.CodeRequiredField)
		}
		return 0
	}

	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		row.AddError(field, fmt.Sprintf("%q is not a number", value), model.CodeInvalidNumber)
		return 0
	}
	// ParseFloat accepts "inf" and "nan"; neither survives the < 0 check.
	if math.IsNaN(price) || math.IsInf(price, 0) {
		row.AddError(field, fmt.Sprintf("%q is not a finite number", value), model.CodeInvalidNumber)
		return 0
	}
	if price < 0 {
		row.AddError(field, field+" must not be negative", model.CodeInvalidNumber)
		return 0
	}
	return price
}

// parseStock fails soft: an unparsable stock becomes 0 with a warning,
// a fractional stock floors, a negative stock is a hard error.
func parseStock(row *model.ValidatedRow, value string) int {
	if value == "" {
		return 0
	}

	stock, err := strconv.ParseFloat(value, 64)
	if err != nil {
		row.AddWarning(fmt.Sprintf("stock %q is not a number; defaulting to 0", value))
		return 0
	}
	if math.IsNaN(stock) || math.IsInf(stock, 0) {
		row.AddError("stock", fmt.Sprintf("stock %q is not a finite number", value), model.CodeInvalidNumber)
		return 0
	}
	if stock < 0 {
		row.AddError("stock", "stock must not be negative", model.CodeInvalidNumber)
		return 0
	}
	return int(math.Floor(stock))
}

func validateURLImages(row *model.ValidatedRow, raw string) {
	for _, ref := range splitPipe(raw) {
		u, err := url.Parse(ref)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			row.AddError("image_urls", fmt.Sprintf("%q is not a valid http(s) URL", ref), model.CodeInvalidURL)
			continue
		}
		row.Images = append(row.Images, ref)
	}

	if len(row.Images) == 0 {
		row.AddError("images", "at least one image is required", model.CodeRequiredField)
	}
}

// validateZipImages checks extension and archive presence independently:
// a misnamed file that is also absent reports both problems.
func validateZipImages(row *model.ValidatedRow, raw string, zipIndex map[string]bool) {
	for _, ref := range splitPipe(raw) {
		key := strings.ToLower(ref)
		ok := true

		if !archive.IsAllowedImage(ref) {
			row.AddError("image_files", fmt.Sprintf("%q is not an allowed image type", ref), model.CodeInvalidFileType)
			ok = false
		}
		if zipIndex != nil && !zipIndex[key] {
			row.AddError("image_files", fmt.Sprintf("%q not found in archive", ref), model.CodeFileNotFound)
			ok = false
		}
		if !ok {
			continue
		}

		row.ImageFiles = append(row.ImageFiles, ref)
		row.Images = append(row.Images, model.PendingPrefix+key)
	}

	if len(row.Images) == 0 {
		row.AddError("images", "at least one image is required", model.CodeRequiredField)
	}
}

func parseVariants(row *model.ValidatedRow, raw string) []model.VariantImport {
	var variants []model.VariantImport
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		row.AddError("variants_json", "variants_json must be a valid JSON array", model.CodeInvalidJSON)
		return nil
	}

	for i, v := range variants {
		field := func(name string) string {
			return fmt.Sprintf("variants_json[%d].%s", i, name)
		}

		if v.SKU == "" {
			row.AddError(field("sku"), "variant sku is required", model.CodeRequiredField)
		} else if len(v.SKU) > maxSKULength {
			row.AddError(field("sku"), fmt.Sprintf("variant sku exceeds %d characters", maxSKULength), model.CodeSKUTooLong)
		}
		if v.MerchantPrice < 0 {
			row.AddError(field("merchantPrice"), "variant price must not be negative", model.CodeInvalidNumber)
		}
		if v.DiscountPrice != nil && *v.DiscountPrice < 0 {
			row.AddError(field("discountPrice"), "variant discount must not be negative", model.CodeInvalidNumber)
		}
		if v.Stock < 0 {
			row.AddError(field("stock"), "variant stock must not be negative", model.CodeInvalidNumber)
		}
	}

	return variants
}

// markDuplicateSkus is case-insensitive and first-seen-wins: the first
// occurrence stays valid, later ones are rejected.
func markDuplicateSkus(result *model.ParseResult) {
	seen := make(map[string]int)
	flagged := make(map[string]bool)

	for i := range result.Rows {
		sku := strings.ToLower(result.Rows[i].SKU)
		if sku == "" {
			continue
		}

		if _, exists := seen[sku]; exists {
			result.Rows[i].AddError("sku",
				fmt.Sprintf("duplicate sku %q (first used at row %d)", result.Rows[i].SKU, seen[sku]+1),
				model.CodeDuplicateSKU)
			if !flagged[sku] {
				result.DuplicateSkus = append(result.DuplicateSkus, sku)
				flagged[sku] = true
			}
		} else {
			seen[sku] = i
		}
	}
}

func splitPipe(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
