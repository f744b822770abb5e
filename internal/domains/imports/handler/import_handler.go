package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"marketplace-backend/internal/config"
	"marketplace-backend/internal/domains/imports/model"
	"marketplace-backend/internal/domains/imports/parser"
	"marketplace-backend/internal/domains/imports/service"
	"marketplace-backend/internal/shared"
	"marketplace-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const maxSpreadsheetSize = 10 * 1024 * 1024

type ImportHandler struct {
	parseService  service.ParseServiceInterface
	commitService service.CommitServiceInterface
	cfg           config.ImportConfig
}

// NewImportHandler creates a new import handler
func NewImportHandler(parseService service.ParseServiceInterface, commitService service.CommitServiceInterface, cfg config.ImportConfig) *ImportHandler {
	return &ImportHandler{
		parseService:  parseService,
		commitService: commitService,
		cfg:           cfg,
	}
}

// Parse - POST /v1/imports/parse
// multipart: "file" (CSV/XLSX, required) + "archive" (ZIP, optional)
func (h *ImportHandler) Parse(c *gin.Context) {
	userID := c.GetString(shared.CtxUserID)
	merchantID := c.GetString(shared.CtxMerchantID)

	// Admins may import on behalf of a merchant.
	if c.GetString(shared.CtxRole) == shared.RoleAdmin {
		if override := c.PostForm("merchant_id"); override != "" {
			merchantID = override
		}
	}
	if merchantID == "" {
		response.BadRequest(c, "merchant_id is required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required (multipart/form-data)")
		return
	}
	if file.Size > maxSpreadsheetSize {
		response.ErrorResponse(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds %dMB limit", maxSpreadsheetSize/(1024*1024)))
		return
	}

	fileData, err := readMultipartFile(file)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded file")
		response.InternalServerError(c, "failed to read uploaded file")
		return
	}

	var zipData []byte
	if archiveFile, err := c.FormFile("archive"); err == nil {
		if archiveFile.Size > h.cfg.MaxArchiveSize {
			response.ErrorResponse(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
				fmt.Sprintf("archive exceeds %dMB limit", h.cfg.MaxArchiveSize/(1024*1024)))
			return
		}
		zipData, err = readMultipartFile(archiveFile)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read uploaded archive")
			response.InternalServerError(c, "failed to read uploaded archive")
			return
		}
	}

	result, err := h.parseService.Parse(c.Request.Context(), service.ParseInput{
		MerchantID: merchantID,
		UserID:     userID,
		FileName:   file.Filename,
		FileData:   fileData,
		ZipData:    zipData,
	})
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedFile) {
			response.BadRequest(c, err.Error())
			return
		}
		log.Error().Err(err).Msg("Import parse failed")
		response.InternalServerError(c, "import parse failed")
		return
	}

	// The envelope mirrors the pipeline result even when validation found
	// problems: the operator needs the preview to fix the spreadsheet.
	c.JSON(http.StatusOK, result)
}

// Commit - POST /v1/imports/commit
func (h *ImportHandler) Commit(c *gin.Context) {
	var req model.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", err)
		return
	}

	userID := c.GetString(shared.CtxUserID)
	role := c.GetString(shared.CtxRole)

	result, err := h.commitService.CommitSession(c.Request.Context(), req.SessionID, userID, role)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrSessionNotFound):
			response.NotFound(c, err.Error())
		case errors.Is(err, model.ErrSessionExpired):
			response.Gone(c, err.Error())
		case errors.Is(err, model.ErrSessionForbidden):
			response.Forbidden(c, err.Error())
		case errors.Is(err, model.ErrSessionCommitting):
			response.Conflict(c, err.Error())
		default:
			log.Error().Err(err).Str("session_id", req.SessionID).Msg("Import commit failed")
			response.InternalServerError(c, "import commit failed")
		}
		return
	}

	c.JSON(http.StatusOK, model.CommitResponse{Success: result.Success, Result: result})
}

// DownloadFailures - POST /v1/imports/failures
// Renders failed rows as a downloadable CSV or JSON report.
func (h *ImportHandler) DownloadFailures(c *gin.Context) {
	var req model.FailureReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", err)
		return
	}

	filename := fmt.Sprintf("import-failures-%s", time.Now().Format("20060102-150405"))

	switch req.Format {
	case "json":
		data, err := parser.FailureReportJSON(req.Failures)
		if err != nil {
			response.InternalServerError(c, "failed to build report")
			return
		}
		serveDownload(c, filename+".json", "application/json", data)
	default:
		data, err := parser.FailureReportCSV(req.Failures)
		if err != nil {
			response.InternalServerError(c, "failed to build report")
			return
		}
		serveDownload(c, filename+".csv", "text/csv", data)
	}
}

// TemplateCSV - GET /v1/imports/template.csv
func (h *ImportHandler) TemplateCSV(c *gin.Context) {
	data, err := parser.TemplateCSV()
	if err != nil {
		response.InternalServerError(c, "failed to build template")
		return
	}
	serveDownload(c, "product-import-template.csv", "text/csv", data)
}

// TemplateXLSX - GET /v1/imports/template.xlsx
func (h *ImportHandler) TemplateXLSX(c *gin.Context) {
	data, err := parser.TemplateXLSX()
	if err != nil {
		response.InternalServerError(c, "failed to build template")
		return
	}
	serveDownload(c, "product-import-template.xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func serveDownload(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
