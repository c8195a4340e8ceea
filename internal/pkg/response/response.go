package response

import (
	"encoding/json"
	"net/http"

	"github.com/finestate/hub-backend/internal/entity"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		// headers are already sent, nothing useful to do on failure
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes {"error": <status text>, "message": message}
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}

// UploadFailure writes the {"ok": false, "error": message} shape used by the upload API.
func UploadFailure(w http.ResponseWriter, status int, message string) {
	JSON(w, status, entity.UploadFailure{OK: false, Error: message})
}

// Success writes a success response
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 Created response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Attachment writes a binary file download.
func Attachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
