package upload

import (
	"context"
	"os"

	"github.com/finestate/hub-backend/internal/entity"
)

type FileStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	PublicPath(name string) string
	List(ctx context.Context) ([]entity.StoredUpload, error)
	Open(ctx context.Context, name string) (*os.File, error)
}

type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type EventPublisher interface {
	PublishUploadStored(ctx context.Context, event *entity.UploadStoredEvent) error
}
