package model

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// =====================================================
// COMMIT REQUEST
// =====================================================
type CommitRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Validate validates CommitRequest
func (req CommitRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SessionID, validation.Required, is.UUIDv4),
	)
}

// =====================================================
// FAILURE REPORT REQUEST
// =====================================================
type FailureReportRequest struct {
	Failures []CommitFailure `json:"failures"`
	Format   string          `json:"format"` // csv | json
}

// Validate validates FailureReportRequest
func (req FailureReportRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Failures, validation.Required),
		validation.Field(&req.Format, validation.Required, validation.In("csv", "json")),
	)
}

// =====================================================
// PARSE RESPONSE
// =====================================================
type ParseResponse struct {
	Success       bool           `json:"success"`
	SessionID     string         `json:"sessionId,omitempty"`
	Preview       []ValidatedRow `json:"preview"`
	TotalRows     int            `json:"totalRows"`
	ValidRows     int            `json:"validRows"`
	InvalidRows   int            `json:"invalidRows"`
	Mode          string         `json:"mode"`
	Errors        []string       `json:"errors,omitempty"`
	Warnings      []string       `json:"warnings,omitempty"`
	DuplicateSkus []string       `json:"duplicateSkus,omitempty"`
}

// =====================================================
// COMMIT RESPONSE
// =====================================================
type CommitResponse struct {
	Success bool          `json:"success"`
	Result  *CommitResult `json:"result"`
}
