package validator

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/finestate/hub-backend/internal/entity"
)

const maxAttachments = 20

// ValidateSendMessage rejects requests that carry neither text nor attachments.
func ValidateSendMessage(req *entity.SendMessageRequest) error {
	if strings.TrimSpace(req.Message) == "" && len(req.Files) == 0 {
		return entity.ErrEmptyMessage
	}

	if len(req.Files) > maxAttachments {
		return fmt.Errorf("%w: at most %d files per message", entity.ErrInvalidParameter, maxAttachments)
	}

	for i, f := range req.Files {
		if strings.TrimSpace(f.Filename) == "" {
			return fmt.Errorf("%w: files[%d].filename", entity.ErrMissingField, i)
		}
	}

	return nil
}

// ValidatePDFPath checks a user chosen attachment before any file or network IO.
func ValidatePDFPath(p string) error {
	if strings.TrimSpace(p) == "" {
		return fmt.Errorf("%w: file", entity.ErrMissingField)
	}

	if strings.ToLower(filepath.Ext(p)) != ".pdf" {
		return fmt.Errorf("%w: only .pdf files are accepted", entity.ErrInvalidFormat)
	}

	return nil
}
