package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseXLSX parses the first sheet of an XLSX workbook into typed rows.
// Cell values arrive as strings from excelize, so downstream validation
// is format-agnostic between CSV and XLSX.
func ParseXLSX(data []byte) *Result {
	result := &Result{}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to open XLSX: %v", err))
		return result
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		result.Errors = append(result.Errors, "workbook has no sheets")
		return result
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read sheet: %v", err))
		return result
	}

	if len(records) == 0 {
		result.Errors = append(result.Errors, "file is empty")
		return result
	}

	colMap, headers := buildColumnIndexMap(records[0])
	result.Headers = headers

	if missing := missingRequired(colMap); len(missing) > 0 {
		result.Errors = append(result.Errors,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
		return result
	}

	for _, record := range records[1:] {
		row := rowFromRecord(record, colMap)
		if row.IsBlank() {
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	return result
}

// GenerateXLSX builds a single-sheet workbook with a styled header row.
func GenerateXLSX(headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerCells); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"4472C4"}},
	})
	if err == nil {
		lastCol, _ := excelize.ColumnNumberToName(len(headers))
		_ = f.SetCellStyle(sheet, "A1", lastCol+"1", style)
	}

	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
