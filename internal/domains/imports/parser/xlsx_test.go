package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseXLSXRoundTrip(t *testing.T) {
	rows := [][]string{
		{"A1", "Widget", "A blue widget", "19.99", "", "USD", "Widgets", "5", "https://example.com/a.jpg", "", ""},
		{"B2", "Gadget", "", "34.50", "29.99", "", "", "0", "", "gadget.jpg", ""},
	}

	data, err := GenerateXLSX(Columns, rows)
	require.NoError(t, err)

	result := ParseXLSX(data)
	require.Empty(t, result.Errors)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, "A1", result.Rows[0].SKU)
	assert.Equal(t, "19.99", result.Rows[0].Price)
	assert.Equal(t, "B2", result.Rows[1].SKU)
	assert.Equal(t, "29.99", result.Rows[1].DiscountPrice)
	assert.Equal(t, "gadget.jpg", result.Rows[1].ImageFiles)
}

func TestParseXLSXMissingRequiredColumns(t *testing.T) {
	data, err := GenerateXLSX([]string{"sku", "description"}, [][]string{{"A1", "whatever"}})
	require.NoError(t, err)

	result := ParseXLSX(data)

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "missing required columns")
	assert.Empty(t, result.Rows)
}

func TestParseXLSXNotAWorkbook(t *testing.T) {
	result := ParseXLSX([]byte("this is not a zip"))

	require.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Rows)
}

func TestParseXLSXSkipsBlankRows(t *testing.T) {
	data, err := GenerateXLSX(Columns, [][]string{
		{"A1", "Widget", "", "10", "", "", "", "", "", "", ""},
		{"", "", "", "", "", "", "", "", "", "", ""},
		{"B2", "Gadget", "", "20", "", "", "", "", "", "", ""},
	})
	require.NoError(t, err)

	result := ParseXLSX(data)
	require.Empty(t, result.Errors)
	require.Len(t, result.Rows, 2)
}
