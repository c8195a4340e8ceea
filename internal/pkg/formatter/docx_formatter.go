package formatter

import (
	"bytes"
	"strings"

	"github.com/unidoc/unioffice/document"

	"github.com/finestate/hub-backend/internal/entity"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (mf *DOCXFormatter) Format(t *entity.Transcript) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titlePar.AddRun().AddText(baseTitle)

	metaRun := doc.AddParagraph().AddRun()
	metaRun.Properties().SetItalic(true)
	metaRun.AddText("Session " + t.SessionID + ", exported " + stamp(t.ExportedAt))

	for _, m := range t.Messages {
		doc.AddParagraph()

		head := doc.AddParagraph().AddRun()
		head.Properties().SetBold(true)
		head.AddText(senderLabel(m.Sender) + "  " + stamp(m.SentAt))

		body := doc.AddParagraph().AddRun()
		for i, line := range strings.Split(m.Text, "\n") {
			if i > 0 {
				body.AddBreak()
			}
			body.AddText(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (mf *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (mf *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
