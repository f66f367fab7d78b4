// Package extract turns uploaded files into plain text for concept
// extraction: format detection, category-specific converters, and a worker
// pool that keeps heavy parsing off the caller's goroutine.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jhartinger/conceptmine/internal/models"
)

// ErrUnsupportedFormat indicates a file extension outside the closed table.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// formatTable is the closed extension -> category lookup. Detection is by
// extension only; content sniffing is not attempted.
var formatTable = map[string]models.FileCategory{
	// text
	"txt":      models.CategoryText,
	"md":       models.CategoryText,
	"markdown": models.CategoryText,
	"html":     models.CategoryText,
	"htm":      models.CategoryText,
	"pdf":      models.CategoryText,
	"docx":     models.CategoryText,
	"doc":      models.CategoryText,
	"rtf":      models.CategoryText,
	"odt":      models.CategoryText,
	"epub":     models.CategoryText,
	"tex":      models.CategoryText,
	"rst":      models.CategoryText,
	"org":      models.CategoryText,
	"adoc":     models.CategoryText,

	// multimedia
	"mp3":  models.CategoryMultimedia,
	"wav":  models.CategoryMultimedia,
	"m4a":  models.CategoryMultimedia,
	"mp4":  models.CategoryMultimedia,
	"mov":  models.CategoryMultimedia,
	"avi":  models.CategoryMultimedia,
	"mkv":  models.CategoryMultimedia,
	"jpg":  models.CategoryMultimedia,
	"jpeg": models.CategoryMultimedia,
	"png":  models.CategoryMultimedia,
	"gif":  models.CategoryMultimedia,
	"webp": models.CategoryMultimedia,

	// structured
	"csv":  models.CategoryStructured,
	"tsv":  models.CategoryStructured,
	"xlsx": models.CategoryStructured,
	"xls":  models.CategoryStructured,
	"json": models.CategoryStructured,
	"yaml": models.CategoryStructured,
	"yml":  models.CategoryStructured,
	"xml":  models.CategoryStructured,
}

// mimeTypes maps formats to a reasonable MIME type for the stored record.
var mimeTypes = map[string]string{
	"txt": "text/plain", "md": "text/markdown", "markdown": "text/markdown",
	"html": "text/html", "htm": "text/html", "pdf": "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"doc":  "application/msword", "rtf": "application/rtf",
	"csv": "text/csv", "tsv": "text/tab-separated-values",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel", "json": "application/json",
	"yaml": "application/yaml", "yml": "application/yaml", "xml": "application/xml",
}

// DetectFormat maps a file name to its (format, category) pair by lowercase
// extension. Unknown extensions fail with ErrUnsupportedFormat.
func DetectFormat(name string) (string, models.FileCategory, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", "", fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	category, ok := formatTable[ext]
	if !ok {
		return "", "", fmt.Errorf("%w: .%s", ErrUnsupportedFormat, ext)
	}
	return ext, category, nil
}

// MimeType returns the MIME type for a detected format, or octet-stream.
func MimeType(format string) string {
	if mt, ok := mimeTypes[format]; ok {
		return mt
	}
	return "application/octet-stream"
}
