package parser

import (
	"strings"
)

// Canonical column set, case-insensitive in the file.
const (
	ColSKU           = "sku"
	ColName          = "name"
	ColDescription   = "description"
	ColPrice         = "price"
	ColDiscountPrice = "discount_price"
	ColCurrency      = "currency"
	ColCategory      = "category"
	ColStock         = "stock"
	ColImageURLs     = "image_urls"
	ColImageFiles    = "image_files"
	ColVariantsJSON  = "variants_json"
)

// Columns in template order.
var Columns = []string{
	ColSKU, ColName, ColDescription, ColPrice, ColDiscountPrice, ColCurrency,
	ColCategory, ColStock, ColImageURLs, ColImageFiles, ColVariantsJSON,
}

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{ColSKU, ColName, ColPrice}

// Row is the typed intermediate representation of one spreadsheet row.
// All values are trimmed strings; the validator owns numeric parsing so
// CSV and XLSX rows behave identically downstream.
type Row struct {
	SKU           string
	Name          string
	Description   string
	Price         string
	DiscountPrice string
	Currency      string
	Category      string
	Stock         string
	ImageURLs     string // pipe-separated
	ImageFiles    string // pipe-separated
	VariantsJSON  string // JSON array
}

// IsBlank reports whether every field is empty after trimming.
func (r Row) IsBlank() bool {
	return r.SKU == "" && r.Name == "" && r.Description == "" && r.Price == "" &&
		r.DiscountPrice == "" && r.Currency == "" && r.Category == "" && r.Stock == "" &&
		r.ImageURLs == "" && r.ImageFiles == "" && r.VariantsJSON == ""
}

// Result is what both parsers return.
// Missing required headers is a global error: Rows stays empty.
type Result struct {
	Rows    []Row
	Headers []string
	Errors  []string
}

// buildColumnIndexMap maps lower-cased header name to column position.
func buildColumnIndexMap(header []string) (map[string]int, []string) {
	colMap := make(map[string]int, len(header))
	headers := make([]string, 0, len(header))
	for i, name := range header {
		normalized := strings.ToLower(strings.TrimSpace(name))
		headers = append(headers, normalized)
		if normalized == "" {
			continue
		}
		if _, exists := colMap[normalized]; !exists {
			colMap[normalized] = i
		}
	}
	return colMap, headers
}

// missingRequired returns the required columns absent from the header.
func missingRequired(colMap map[string]int) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

// rowFromRecord builds a typed Row from a positional record.
func rowFromRecord(record []string, colMap map[string]int) Row {
	getCol := func(name string) string {
		if idx, ok := colMap[name]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	return Row{
		SKU:           getCol(ColSKU),
		Name:          getCol(ColName),
		Description:   getCol(ColDescription),
		Price:         getCol(ColPrice),
		DiscountPrice: getCol(ColDiscountPrice),
		Currency:      getCol(ColCurrency),
		Category:      getCol(ColCategory),
		Stock:         getCol(ColStock),
		ImageURLs:     getCol(ColImageURLs),
		ImageFiles:    getCol(ColImageFiles),
		VariantsJSON:  getCol(ColVariantsJSON),
	}
}

// Values returns the row's fields in template column order.
func (r Row) Values() []string {
	return []string{
		r.SKU, r.Name, r.Description, r.Price, r.DiscountPrice, r.Currency,
		r.Category, r.Stock, r.ImageURLs, r.ImageFiles, r.VariantsJSON,
	}
}
