package upload

import (
	"context"
	"os"

	"github.com/finestate/hub-backend/internal/entity"
)

type UploadUsecase interface {
	Upload(ctx context.Context, rawName string, data []byte) (*entity.UploadResult, error)
	ListUploads(ctx context.Context) ([]entity.StoredUpload, error)
	OpenUpload(ctx context.Context, name string) (*os.File, error)
}
