package formatter

import (
	"bytes"
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"

	"github.com/finestate/hub-backend/internal/entity"
)

const (
	pdfContentType   = "application/pdf"
	pdfFileExtension = ".pdf"

	// pdfFontName is the internal name used by gofpdf
	// for the UTF-8 capable font.
	pdfFontName = "DejaVuSans"

	// In the container image fonts are copied next to the binary.
	pdfFontRuntimePath = "ttf/DejaVuSans.ttf"

	pdfFontSourcePath = "internal/pkg/formatter/ttf/DejaVuSans.ttf"
)

type PDFFormatter struct{}

func NewPDFFormatter() *PDFFormatter {
	return &PDFFormatter{}
}

// resolveFontPath tries to find the DejaVuSans font in
// runtime layout (next to the binary) or source layout.
func resolveFontPath() string {
	if _, err := os.Stat(pdfFontRuntimePath); err == nil {
		return pdfFontRuntimePath
	}
	if _, err := os.Stat(pdfFontSourcePath); err == nil {
		return pdfFontSourcePath
	}
	return ""
}

func (mf *PDFFormatter) Format(t *entity.Transcript) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(baseTitle, true)
	pdf.AddPage()

	// Core fonts are cp1252 only, text is translated when no TTF is bundled.
	fontName := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontPath := resolveFontPath(); fontPath != "" {
		pdf.AddUTF8Font(pdfFontName, "", fontPath)
		pdf.AddUTF8Font(pdfFontName, "B", fontPath)
		fontName = pdfFontName
		tr = func(s string) string { return s }
	}

	pdf.SetFont(fontName, "B", 18)
	pdf.MultiCell(0, 9, tr(baseTitle), "", "", false)
	pdf.Ln(2)

	pdf.SetFont(fontName, "", 9)
	pdf.Cell(0, 5, tr(fmt.Sprintf("Session %s, exported %s", t.SessionID, stamp(t.ExportedAt))))
	pdf.Ln(10)

	if len(t.Messages) == 0 {
		pdf.SetFont(fontName, "", 12)
		pdf.Cell(0, 6, tr("No messages."))
	}

	for _, m := range t.Messages {
		pdf.SetFont(fontName, "B", 11)
		pdf.Cell(0, 6, tr(fmt.Sprintf("%s  %s", senderLabel(m.Sender), stamp(m.SentAt))))
		pdf.Ln(6)

		pdf.SetFont(fontName, "", 11)
		_, lineHeight := pdf.GetFontSize()
		pdf.MultiCell(0, lineHeight*1.5, tr(m.Text), "", "", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *PDFFormatter) ContentType() string {
	return pdfContentType
}

func (mf *PDFFormatter) FileExtension() string {
	return pdfFileExtension
}
