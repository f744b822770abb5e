package model

import "errors"

var (
	ErrSessionNotFound   = errors.New("import session not found")
	ErrSessionExpired    = errors.New("import session expired")
	ErrSessionForbidden  = errors.New("import session belongs to another user")
	ErrSessionCommitting = errors.New("import session commit already in progress")
	ErrZipRequired       = errors.New("spreadsheet references archive files but no archive was uploaded")
	ErrUnsupportedFile   = errors.New("unsupported file type (expected .csv or .xlsx)")
	ErrFileTooLarge      = errors.New("uploaded file exceeds the size limit")
	ErrTooManyRows       = errors.New("file exceeds the row limit")
)
