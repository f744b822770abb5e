package parser

import (
	"encoding/json"
	"testing"

	"marketplace-backend/internal/domains/imports/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateCSVParsesBack(t *testing.T) {
	data, err := TemplateCSV()
	require.NoError(t, err)

	result := ParseCSV(data)
	require.Empty(t, result.Errors)
	assert.Equal(t, Columns, result.Headers)
	assert.NotEmpty(t, result.Rows)
}

func TestTemplateXLSXParsesBack(t *testing.T) {
	data, err := TemplateXLSX()
	require.NoError(t, err)

	result := ParseXLSX(data)
	require.Empty(t, result.Errors)
	assert.Equal(t, Columns, result.Headers)
	assert.NotEmpty(t, result.Rows)
}

func TestFailureReportCSV(t *testing.T) {
	failures := []model.CommitFailure{
		{
			RowIndex: 4,
			SKU:      "A1",
			Name:     "Widget",
			Reason:   model.ReasonValidationFailed,
			Errors: []model.RowError{
				{Field: "price", Message: `"abc" is not a number`, Code: model.CodeInvalidNumber},
			},
		},
	}

	data, err := FailureReportCSV(failures)
	require.NoError(t, err)

	result := ParseCSV(data)
	require.Empty(t, result.Errors)

	out := string(data)
	assert.Contains(t, out, "row,sku,name,reason,errors")
	// 1-based row number for spreadsheet users
	assert.Contains(t, out, "5,A1,Widget")
	assert.Contains(t, out, "[INVALID_NUMBER]")
}

func TestFailureReportJSON(t *testing.T) {
	failures := []model.CommitFailure{
		{RowIndex: 0, SKU: "A1", Reason: model.ReasonCategoryNotFound},
	}

	data, err := FailureReportJSON(failures)
	require.NoError(t, err)

	var decoded []model.CommitFailure
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "A1", decoded[0].SKU)
	assert.Equal(t, model.ReasonCategoryNotFound, decoded[0].Reason)
}
