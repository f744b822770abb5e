package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"marketplace-backend/internal/domains/imports/model"
)

// templateSampleRows give merchants one URL-mode and one ZIP-mode example.
func templateSampleRows() [][]string {
	return [][]string{
		{
			"WIDGET-001", "Blue Widget", "A reliable blue widget", "19.99", "", "USD",
			"Widgets", "25", "https://example.com/images/widget-blue.jpg", "",
			`[{"sku":"WIDGET-001-S","attributes":{"size":"S"},"merchantPrice":19.99,"stock":10,"isActive":true}]`,
		},
		{
			"GADGET-002", "Red Gadget", "Ships with batteries", "34.50", "29.99", "USD",
			"Gadgets", "8", "", "gadget-red.jpg", "",
		},
	}
}

// TemplateCSV returns the downloadable CSV template.
func TemplateCSV() ([]byte, error) {
	return GenerateCSV(Columns, templateSampleRows())
}

// TemplateXLSX returns the downloadable XLSX template.
func TemplateXLSX() ([]byte, error) {
	return GenerateXLSX(Columns, templateSampleRows())
}

// Failure report columns.
var failureReportColumns = []string{"row", "sku", "name", "reason", "errors"}

// FailureReportCSV renders commit failures as a downloadable CSV.
func FailureReportCSV(failures []model.CommitFailure) ([]byte, error) {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{
			fmt.Sprintf("%d", f.RowIndex+1), // 1-based for spreadsheet users
			f.SKU,
			f.Name,
			f.Reason,
			formatRowErrors(f.Errors),
		})
	}
	return GenerateCSV(failureReportColumns, rows)
}

// FailureReportJSON renders commit failures as indented JSON.
func FailureReportJSON(failures []model.CommitFailure) ([]byte, error) {
	data, err := json.MarshalIndent(failures, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize failures: %w", err)
	}
	return data, nil
}

func formatRowErrors(errs []model.RowError) string {
	if len(errs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("%s: %s [%s]", e.Field, e.Message, e.Code))
	}
	return strings.Join(parts, "; ")
}
