package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/logger"
	"github.com/finestate/hub-backend/internal/pkg/response"
)

const (
	FilenameHeader = "X-Filename"

	uploadFailedMessage = "upload failed"
	tooLargeMessage     = "file too large"
)

type Handler struct {
	usecase UploadUsecase
	cfg     config.UploadConfig
}

func NewHandler(usecase UploadUsecase, cfg config.UploadConfig) *Handler {
	return &Handler{
		usecase: usecase,
		cfg:     cfg,
	}
}

// Upload handles POST /api/upload.
// The body is the raw file and X-Filename carries the URL-encoded name.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Upload")
	rawName := r.Header.Get(FilenameHeader)
	ctx = logger.AddFields(ctx, zap.String("raw_filename", rawName))

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondFailure(ctx, w, http.StatusRequestEntityTooLarge, tooLargeMessage, err)
			return
		}
		h.respondFailure(ctx, w, http.StatusInternalServerError, uploadFailedMessage, err)
		return
	}

	result, err := h.usecase.Upload(ctx, rawName, data)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, result)
}

// ListUploads handles GET /api/uploads.
func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListUploads")

	uploads, err := h.usecase.ListUploads(ctx)
	if err != nil {
		ctxzap.Error(ctx, "failed to list uploads", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to list uploads")
		return
	}

	response.Success(w, entity.UploadList{Uploads: uploads})
}

// ServeUpload handles GET {publicPrefix}/{name}. The name is the escaped
// path segment produced by the upload response, so it is unescaped once.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ServeUpload")

	escaped := strings.TrimPrefix(r.URL.EscapedPath(), h.cfg.PublicPrefix+"/")
	name, err := url.PathUnescape(escaped)
	if err != nil || escaped == "" || strings.Contains(escaped, "/") {
		http.NotFound(w, r)
		return
	}

	f, err := h.usecase.OpenUpload(ctx, name)
	if err != nil {
		if errors.Is(err, entity.ErrUploadNotFound) {
			http.NotFound(w, r)
			return
		}
		ctxzap.Error(ctx, "failed to open upload", zap.String("name", name), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		ctxzap.Error(ctx, "failed to stat upload", zap.String("name", name), zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "failed to read upload")
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func (h *Handler) respondFailure(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Int("status", status), zap.Error(err))
	response.UploadFailure(w, status, message)
}

// handleUsecaseError never leaks the underlying error to the client.
func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrFileTooLarge):
		h.respondFailure(ctx, w, http.StatusRequestEntityTooLarge, tooLargeMessage, err)
	default:
		h.respondFailure(ctx, w, http.StatusInternalServerError, uploadFailedMessage, err)
	}
}
