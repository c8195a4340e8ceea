package chat

import (
	"context"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
	chatuc "github.com/finestate/hub-backend/internal/usecase/chat"
)

type ChatUsecase interface {
	CreateSession(ctx context.Context) (*chatcore.Session, error)
	GetSession(ctx context.Context, id string) (*chatcore.Session, error)
	SendMessage(ctx context.Context, id string, req *entity.SendMessageRequest) (*chatcore.Subscription, uint64, error)
	ResetSession(ctx context.Context, id string) error
	ExportTranscript(ctx context.Context, id string, format entity.ResultFormat) (*chatuc.ExportedTranscript, error)
}
