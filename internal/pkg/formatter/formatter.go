package formatter

import (
	"fmt"
	"time"

	"github.com/finestate/hub-backend/internal/entity"
)

const baseTitle = "CBRE Intelligence Hub chat transcript"

type Formatter interface {
	Format(t *entity.Transcript) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// Factory creates transcript formatters. DOCX output needs a UniDoc
// license, so it is only offered when one was configured.
type Factory struct {
	docx bool
}

func NewFactory(docxEnabled bool) *Factory {
	return &Factory{docx: docxEnabled}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		if !f.docx {
			return nil, fmt.Errorf("%w: docx export is disabled, set UNIDOC_LICENSE_API_KEY to enable it", entity.ErrInvalidParameter)
		}
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", entity.ErrInvalidParameter, format)
	}
}

func senderLabel(s entity.Sender) string {
	if s == entity.SenderBot {
		return "Assistant"
	}
	return "You"
}

func stamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
