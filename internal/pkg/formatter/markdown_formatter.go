package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/finestate/hub-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(t *entity.Transcript) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", baseTitle)
	fmt.Fprintf(&buf, "- Session: `%s`\n- Exported: %s\n", t.SessionID, stamp(t.ExportedAt))

	if len(t.Messages) == 0 {
		buf.WriteString("\n_No messages._\n")
		return buf.Bytes(), nil
	}

	for _, m := range t.Messages {
		fmt.Fprintf(&buf, "\n**%s** (%s)\n\n", senderLabel(m.Sender), stamp(m.SentAt))
		for _, line := range strings.Split(m.Text, "\n") {
			if line == "" {
				buf.WriteString(">\n")
				continue
			}
			fmt.Fprintf(&buf, "> %s\n", line)
		}
	}
	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
