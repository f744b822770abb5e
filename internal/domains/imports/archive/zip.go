package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Extensions retained during extraction. GIF is mapped for MIME detection
// but not accepted as an import image.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

var mimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// FileEntry is one extracted image.
type FileEntry struct {
	Filename string // original basename, case preserved
	Data     []byte
	Size     int64
	MimeType string
}

// Extraction is the result of reading an archive.
// Files is keyed by lower-cased basename: spreadsheet references must match
// regardless of case or the archive's internal folder structure.
type Extraction struct {
	IsValid   bool
	Files     map[string]*FileEntry
	Errors    []string
	TotalSize int64
}

// Extractor enforces archive and per-file size caps.
type Extractor struct {
	MaxArchiveSize int64
	MaxFileSize    int64
}

func NewExtractor(maxArchiveSize, maxFileSize int64) *Extractor {
	if maxArchiveSize <= 0 {
		maxArchiveSize = 50 * 1024 * 1024
	}
	if maxFileSize <= 0 {
		maxFileSize = 5 * 1024 * 1024
	}
	return &Extractor{MaxArchiveSize: maxArchiveSize, MaxFileSize: maxFileSize}
}

// ExtractZip materializes every accepted image in the archive.
// Exceeding the archive cap aborts extraction entirely; a single oversized
// file is reported and skipped while the rest still extract. Directories,
// dotfiles, OS metadata and non-image entries are packaging noise, skipped
// without an error.
func (e *Extractor) ExtractZip(data []byte) *Extraction {
	result := &Extraction{Files: make(map[string]*FileEntry)}

	if int64(len(data)) > e.MaxArchiveSize {
		result.Errors = append(result.Errors,
			fmt.Sprintf("archive exceeds %dMB limit", e.MaxArchiveSize/(1024*1024)))
		return result
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("invalid ZIP archive: %v", err))
		return result
	}

	for _, f := range reader.File {
		name, ok := acceptEntry(f)
		if !ok {
			continue
		}

		if int64(f.UncompressedSize64) > e.MaxFileSize {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s exceeds %dMB limit", name, e.MaxFileSize/(1024*1024)))
			continue
		}

		entry, err := readEntry(f, name, e.MaxFileSize)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}

		result.Files[strings.ToLower(name)] = entry
		result.TotalSize += entry.Size
	}

	result.IsValid = len(result.Errors) == 0
	return result
}

// ListFiles enumerates accepted image filenames (lower-cased basenames)
// without materializing any buffers. Cheap existence checks go through
// this before paying extraction cost.
func (e *Extractor) ListFiles(data []byte) ([]string, error) {
	if int64(len(data)) > e.MaxArchiveSize {
		return nil, fmt.Errorf("archive exceeds %dMB limit", e.MaxArchiveSize/(1024*1024))
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid ZIP archive: %w", err)
	}

	var names []string
	for _, f := range reader.File {
		if name, ok := acceptEntry(f); ok {
			names = append(names, strings.ToLower(name))
		}
	}
	return names, nil
}

// ExtractFiles pulls only the requested filenames (lower-cased basenames)
// into memory. Commit only needs the images referenced by valid rows, not
// the whole archive. Per-file problems (size cap, corrupt entry) come back
// in the second map so callers can attribute them to individual rows.
func (e *Extractor) ExtractFiles(data []byte, names []string) (map[string]*FileEntry, map[string]error, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid ZIP archive: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(n)] = true
	}

	files := make(map[string]*FileEntry)
	fileErrs := make(map[string]error)
	for _, f := range reader.File {
		name, ok := acceptEntry(f)
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		if !wanted[key] {
			continue
		}
		if int64(f.UncompressedSize64) > e.MaxFileSize {
			fileErrs[key] = fmt.Errorf("%s exceeds %dMB limit", name, e.MaxFileSize/(1024*1024))
			continue
		}

		entry, err := readEntry(f, name, e.MaxFileSize)
		if err != nil {
			fileErrs[key] = err
			continue
		}
		files[key] = entry
	}

	return files, fileErrs, nil
}

// IsAllowedImage reports whether a filename carries an accepted extension.
func IsAllowedImage(filename string) bool {
	return allowedExtensions[strings.ToLower(path.Ext(filename))]
}

// MimeTypeFor returns the MIME type for a filename's extension.
func MimeTypeFor(filename string) string {
	if mt, ok := mimeTypes[strings.ToLower(path.Ext(filename))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// acceptEntry filters directories, metadata and non-image entries, and
// flattens nested paths to the basename.
func acceptEntry(f *zip.File) (string, bool) {
	if f.FileInfo().IsDir() {
		return "", false
	}

	// Forward slashes are the ZIP norm, but be tolerant of backslash paths.
	cleaned := strings.ReplaceAll(f.Name, "\\", "/")
	name := path.Base(cleaned)

	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		return "", false
	}
	// macOS resource forks and similar
	if strings.Contains(cleaned, "__MACOSX/") || strings.HasPrefix(name, "._") {
		return "", false
	}
	if !allowedExtensions[strings.ToLower(path.Ext(name))] {
		return "", false
	}

	return name, true
}

func readEntry(f *zip.File, name string, maxFileSize int64) (*FileEntry, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", name, err)
	}
	defer rc.Close()

	// +1 so a lying header still trips the cap
	data, err := io.ReadAll(io.LimitReader(rc, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", name, err)
	}
	if int64(len(data)) > maxFileSize {
		return nil, fmt.Errorf("%s exceeds %dMB limit", name, maxFileSize/(1024*1024))
	}

	return &FileEntry{
		Filename: name,
		Data:     data,
		Size:     int64(len(data)),
		MimeType: MimeTypeFor(name),
	}, nil
}
