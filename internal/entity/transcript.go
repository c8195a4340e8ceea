package entity

import "time"

type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

func (f ResultFormat) IsValid() bool {
	switch f {
	case FormatMarkdown, FormatDOCX, FormatPDF:
		return true
	default:
		return false
	}
}

// Transcript is an exported copy of a conversation.
type Transcript struct {
	SessionID  string
	ExportedAt time.Time
	Messages   []ChatMessage
}
