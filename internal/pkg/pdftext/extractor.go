package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const pdfMagic = "%PDF"

// HasPDFHeader reports whether data begins with the ASCII bytes "%PDF".
func HasPDFHeader(data []byte) bool {
	return bytes.HasPrefix(data, []byte(pdfMagic))
}

type Extractor struct {
	maxPages int
}

// NewExtractor returns an extractor that reads at most maxPages pages.
// Zero or a negative value means no limit.
func NewExtractor(maxPages int) *Extractor {
	return &Extractor{maxPages: maxPages}
}

// Extract returns the plain text of every page that has a text layer.
// Parser panics on malformed input are converted into errors.
func (e *Extractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	pageCount := reader.NumPage()
	if e.maxPages > 0 && pageCount > e.maxPages {
		ctxzap.Warn(ctx, "PDF page count exceeds limit, truncating extraction",
			zap.Int("pages", pageCount),
			zap.Int("limit", e.maxPages),
		)
		pageCount = e.maxPages
	}

	var sb strings.Builder
	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// image-only pages have no text layer
			ctxzap.Debug(ctx, "Skipping page without extractable text", zap.Int("page", i), zap.Error(err))
			continue
		}

		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pageText)
	}

	return sb.String(), nil
}
