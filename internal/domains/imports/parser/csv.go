package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// ParseCSV parses raw CSV bytes into typed rows.
// Line endings are normalized first: encoding/csv handles CRLF but not
// bare CR files, which some spreadsheet exports still produce.
func ParseCSV(data []byte) *Result {
	result := &Result{}

	normalized := normalizeLineEndings(data)

	reader := csv.NewReader(bytes.NewReader(normalized))
	reader.FieldsPerRecord = -1 // rows may be ragged; missing cells read as empty
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read CSV: %v", err))
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

// GenerateCSV writes headers + rows with standard CSV escaping.
// Inverse of ParseCSV for well-formed values: quoted fields with embedded
// commas and doubled quotes survive a generate -> parse cycle.
func GenerateCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// normalizeLineEndings rewrites CRLF and bare CR to LF.
func normalizeLineEndings(data []byte) []byte {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))
	return data
}
