package service

import (
	"context"
	"fmt"
	"strings"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/domains/imports/archive"
	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/domains/imports/parser"
	"marketplace-backend/internal/domains/imports/session"
	"marketplace-backend/internal/domains/imports/validator"

	"github.com/rs/zerolog/log"
)

// ParseInput is one uploaded spreadsheet plus an optional image archive.
type ParseInput struct {
	MerchantID string
	UserID     string
	FileName   string
	FileData   []byte
	ZipData    []byte
}

// ParseServiceInterface turns uploads into reviewable sessions
type ParseServiceInterface interface {
	Parse(ctx context.Context, input ParseInput) (*model.ParseResponse, error)
}

type parseService struct {
	store     session.Store
	extractor *archive.Extractor
	cfg       config.ImportConfig
}

// NewParseService creates a new parse service
func NewParseService(store session.Store, extractor *archive.Extractor, cfg config.ImportConfig) ParseServiceInterface {
	return &parseService{
		store:     store,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Parse validates the batch and, when nothing blocks it globally, caches a
// session for the commit call. Parse never touches the product store.
func (s *parseService) Parse(ctx context.Context, input ParseInput) (*model.ParseResponse, error) {
	log.Info().
		Str("merchant_id", input.MerchantID).
		Str("user_id", input.UserID).
		Str("file_name", input.FileName).
		Int("file_size", len(input.FileData)).
		Bool("has_archive", len(input.ZipData) > 0).
		Msg("Starting import parse")

	raw, err := s.parseFile(input.FileName, input.FileData)
	if err != nil {
		return nil, err
	}
	if len(raw.Errors) > 0 {
		return &model.ParseResponse{Success: false, Errors: raw.Errors}, nil
	}

	if len(raw.Rows) > s.cfg.MaxRows {
		return &model.ParseResponse{
			Success: false,
			Errors:  []string{fmt.Sprintf("file exceeds %d rows limit", s.cfg.MaxRows)},
		}, nil
	}

	opts := validator.Options{DefaultCurrency: s.cfg.DefaultCurrency}
	if len(input.ZipData) > 0 {
		names, err := s.extractor.ListFiles(input.ZipData)
		if err != nil {
			return &model.ParseResponse{Success: false, Errors: []string{err.Error()}}, nil
		}
		opts.ZipFileIndex = make(map[string]bool, len(names))
		for _, n := range names {
			opts.ZipFileIndex[n] = true
		}
	}

	result := validator.ValidateRows(raw.Rows, opts)

	response := &model.ParseResponse{
		Success:       len(result.Errors) == 0,
		Preview:       previewRows(result.Rows, s.cfg.PreviewRows),
		TotalRows:     result.TotalRows,
		ValidRows:     result.ValidRows,
		InvalidRows:   result.InvalidRows,
		Mode:          result.Mode,
		Errors:        result.Errors,
		Warnings:      result.Warnings,
		DuplicateSkus: result.DuplicateSkus,
	}

	// A globally blocked batch (missing archive) gets no session; the
	// operator has to re-upload anyway.
	if len(result.Errors) > 0 {
		return response, nil
	}

	var zipData []byte
	if result.Mode == model.ModeZip {
		zipData = input.ZipData
	}

	sess := session.New(input.MerchantID, input.UserID, result, zipData, s.cfg.SessionTTL)
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store import session: %w", err)
	}

	response.SessionID = sess.ID

	log.Info().
		Str("session_id", sess.ID).
		Str("mode", result.Mode).
		Int("total_rows", result.TotalRows).
		Int("valid_rows", result.ValidRows).
		Msg("Import parsed")

	return response, nil
}

func (s *parseService) parseFile(filename string, data []byte) (*parser.Result, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return parser.ParseCSV(data), nil
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return parser.ParseXLSX(data), nil
	default:
		return nil, model.ErrUnsupportedFile
	}
}

func previewRows(rows []model.ValidatedRow, limit int) []model.ValidatedRow {
	if limit <= 0 {
		limit = 20
	}
	if len(rows) <= limit {
		return rows
	}
	return rows[:limit]
}
