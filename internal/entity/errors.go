package entity

import "errors"

// Domain errors
var (
	// Upload errors
	ErrInvalidFilename = errors.New("invalid filename")
	ErrFileTooLarge    = errors.New("file too large")
	ErrStorage         = errors.New("storage failure")
	ErrUploadNotFound  = errors.New("upload not found")

	// Chat errors
	ErrChatSessionNotFound = errors.New("chat session not found")
	ErrChatSessionClosed   = errors.New("chat session is closed")
	ErrEmptyMessage        = errors.New("message is empty")
	ErrVoiceUnavailable    = errors.New("voice input is not available")
	ErrEmptyReply          = errors.New("chat backend returned an empty reply")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrInvalidParameter = errors.New("invalid parameter")
)
