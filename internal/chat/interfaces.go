package chat

import (
	"context"

	"github.com/finestate/hub-backend/internal/entity"
)

// ReplySource produces the full text of a bot reply.
type ReplySource interface {
	Reply(ctx context.Context, req *entity.ReplyRequest) (string, error)
}

// Synthesizer speaks text aloud. Speak queues text and returns immediately.
type Synthesizer interface {
	Available() bool
	Speak(text string) error
	Cancel()
	Speaking() bool
}

// Recognizer turns captured speech into transcripts. The returned channel
// is closed when the capture ends or ctx is cancelled.
type Recognizer interface {
	Available() bool
	Listen(ctx context.Context) (<-chan Transcript, error)
}

type Transcript struct {
	Text  string
	Final bool
	Err   error
}
