package entity

import "time"

// PDFHeaderMissing is reported instead of a parser error when the stored
// bytes do not begin with the PDF magic.
const PDFHeaderMissing = "file does not start with %PDF header; skipping text extraction"

// UploadResult is the body of a successful upload response.
// ParseError is null when text extraction succeeded.
type UploadResult struct {
	OK         bool    `json:"ok"`
	Path       string  `json:"path"`
	Text       string  `json:"text"`
	ParseError *string `json:"parseError"`
}

type UploadFailure struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// StoredUpload describes a file that already sits in the uploads directory.
type StoredUpload struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

type UploadList struct {
	Uploads []StoredUpload `json:"uploads"`
}

// UploadStoredEvent is published after a file has been written to disk.
type UploadStoredEvent struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int       `json:"size"`
	IsPDF      bool      `json:"isPdf"`
	TextLength int       `json:"textLength"`
	ParseError string    `json:"parseError,omitempty"`
	StoredAt   time.Time `json:"storedAt"`
}
