package console

import (
	"context"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
)

// ChatSession is the part of a chat session the console drives.
type ChatSession interface {
	Subscribe() *chatcore.Subscription
	Send(ctx context.Context, text string) error
	Attach(file entity.FileSelection) error
	Files() []entity.FileSelection
	NewConversation() error
	ToggleVoice(ctx context.Context) error
	Phase() chatcore.Phase
}

type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// HubUploader stores a file on the hub server.
type HubUploader interface {
	Upload(ctx context.Context, filename string, data []byte) (*entity.UploadResult, error)
}

// AttachmentMirror forwards attachment bytes to the chat backend.
type AttachmentMirror interface {
	UploadFile(ctx context.Context, filename string, data []byte) error
}

// ClipQueue receives the audio clip used by the next voice capture.
type ClipQueue interface {
	Queue(path string)
}
