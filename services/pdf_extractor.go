package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"lillith/internal/logger"
	"lillith/models"

	"github.com/ledongthuc/pdf"
)

// maxPDFSize caps in-memory extraction.
const maxPDFSize = 200 << 20

// DocumentLoader turns a source file into raw text.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*models.Document, error)
}

// PDFExtractor reads the text layer of PDF files page by page.
type PDFExtractor struct{}

// NewPDFExtractor creates a new PDF extractor
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Load extracts plain text from every readable page. Pages that fail to
// decode are skipped with a warning; a file with no readable page is an error.
func (e *PDFExtractor) Load(ctx context.Context, path string) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > maxPDFSize {
		return nil, fmt.Errorf("pdf too large for in-memory extraction: %s", path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("failed to open PDF %s: %w", path, err)
	}
	defer f.Close()

	var text strings.Builder
	pages := reader.NumPage()
	readable := 0

	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract text from page", "file", path, "page", i, "error", err)
			continue
		}

		readable++
		text.WriteString(pageText)
		text.WriteString("\n")
	}

	if readable == 0 {
		return nil, fmt.Errorf("no text extracted from %s", path)
	}

	return &models.Document{
		SourcePath: path,
		RawText:    text.String(),
		Pages:      pages,
	}, nil
}
