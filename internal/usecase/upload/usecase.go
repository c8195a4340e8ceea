package upload

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/pdftext"
	"github.com/finestate/hub-backend/internal/pkg/validator"
)

// UploadUsecase stores uploaded files and runs best-effort text extraction.
type UploadUsecase struct {
	store     FileStore
	extractor TextExtractor
	publisher EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

func NewUsecase(
	store FileStore,
	extractor TextExtractor,
	publisher EventPublisher,
	logger *zap.Logger,
) *UploadUsecase {
	return &UploadUsecase{
		store:     store,
		extractor: extractor,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// Upload writes data under a sanitized form of rawName and extracts its text.
// Only storage failures are returned as errors. Extraction problems end up
// in ParseError of an otherwise successful result.
func (uc *UploadUsecase) Upload(ctx context.Context, rawName string, data []byte) (*entity.UploadResult, error) {
	name := validator.SanitizeUploadFilename(rawName, uc.now())

	ctx = ctxzap.ToContext(ctx, ctxzap.Extract(ctx).With(
		zap.String("filename", name),
		zap.Int("size", len(data)),
	))

	if _, err := uc.store.Save(ctx, name, data); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	result := &entity.UploadResult{
		OK:   true,
		Path: uc.store.PublicPath(name),
	}

	isPDF := pdftext.HasPDFHeader(data)
	if !isPDF {
		msg := entity.PDFHeaderMissing
		result.ParseError = &msg
		ctxzap.Info(ctx, "upload stored without text extraction", zap.String("reason", msg))
	} else {
		text, err := uc.extractor.Extract(ctx, data)
		if err != nil {
			msg := err.Error()
			result.ParseError = &msg
			ctxzap.Warn(ctx, "pdf text extraction failed", zap.Error(err))
		} else {
			result.Text = text
			ctxzap.Info(ctx, "upload stored", zap.Int("text_length", len(text)))
		}
	}

	uc.publishStored(ctx, name, data, isPDF, result)

	return result, nil
}

func (uc *UploadUsecase) ListUploads(ctx context.Context) ([]entity.StoredUpload, error) {
	uploads, err := uc.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return uploads, nil
}

// OpenUpload opens a stored upload for serving. The caller closes the file.
func (uc *UploadUsecase) OpenUpload(ctx context.Context, name string) (*os.File, error) {
	f, err := uc.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	return f, nil
}

func (uc *UploadUsecase) publishStored(ctx context.Context, name string, data []byte, isPDF bool, result *entity.UploadResult) {
	if uc.publisher == nil {
		return
	}

	event := &entity.UploadStoredEvent{
		Name:       name,
		Path:       result.Path,
		Size:       len(data),
		IsPDF:      isPDF,
		TextLength: len(result.Text),
		StoredAt:   uc.now().UTC(),
	}
	if result.ParseError != nil {
		event.ParseError = *result.ParseError
	}

	if err := uc.publisher.PublishUploadStored(ctx, event); err != nil {
		ctxzap.Warn(ctx, "failed to publish upload event", zap.Error(err))
	}
}
