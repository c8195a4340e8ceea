package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/chat"
)

var ErrNoClip = errors.New("no audio clip queued")

// Transcriber converts a recorded audio clip to text.
type Transcriber interface {
	TranscribeBytes(ctx context.Context, audioData []byte, filename string) (string, error)
}

// ClipRecognizer recognizes speech from recorded audio files. The caller
// queues a clip before toggling capture, Listen transcribes it and replays
// the words as interim transcripts before the final one.
type ClipRecognizer struct {
	transcriber Transcriber
	interval    time.Duration
	logger      *zap.Logger

	mu   sync.Mutex
	clip string
}

func NewClipRecognizer(transcriber Transcriber, interval time.Duration, logger *zap.Logger) *ClipRecognizer {
	return &ClipRecognizer{
		transcriber: transcriber,
		interval:    interval,
		logger:      logger,
	}
}

func (r *ClipRecognizer) Available() bool {
	return r.transcriber != nil
}

// Queue sets the clip the next Listen call consumes.
func (r *ClipRecognizer) Queue(path string) {
	r.mu.Lock()
	r.clip = path
	r.mu.Unlock()
}

func (r *ClipRecognizer) Listen(ctx context.Context) (<-chan chat.Transcript, error) {
	r.mu.Lock()
	clip := r.clip
	r.clip = ""
	r.mu.Unlock()

	if clip == "" {
		return nil, ErrNoClip
	}

	data, err := os.ReadFile(clip)
	if err != nil {
		return nil, fmt.Errorf("read clip: %w", err)
	}

	out := make(chan chat.Transcript)
	go r.recognize(ctx, data, filepath.Base(clip), out)
	return out, nil
}

func (r *ClipRecognizer) recognize(ctx context.Context, data []byte, name string, out chan<- chat.Transcript) {
	defer close(out)

	text, err := r.transcriber.TranscribeBytes(ctx, data, name)
	if err != nil {
		r.emit(ctx, out, chat.Transcript{Err: err})
		return
	}

	words := strings.Fields(text)
	for i := 1; i < len(words); i++ {
		if !r.emit(ctx, out, chat.Transcript{Text: strings.Join(words[:i], " ")}) {
			return
		}
		if r.interval > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.interval):
			}
		}
	}

	r.emit(ctx, out, chat.Transcript{Text: strings.Join(words, " "), Final: true})
}

func (r *ClipRecognizer) emit(ctx context.Context, out chan<- chat.Transcript, t chat.Transcript) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- t:
		return true
	}
}
