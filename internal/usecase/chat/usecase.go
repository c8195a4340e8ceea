package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/validator"
)

// ExportedTranscript is a rendered transcript ready to be served as a download.
type ExportedTranscript struct {
	Data        []byte
	ContentType string
	Filename    string
}

// ChatUsecase keeps browser chat sessions in an in-memory TTL cache.
// Every access slides the expiry, evicted sessions are closed.
type ChatUsecase struct {
	sessions   *cache.Cache
	sessionCfg chatcore.Config
	replies    chatcore.ReplySource
	formatters FormatterFactory
	now        func() time.Time
	logger     *zap.Logger
}

func NewUsecase(
	replies chatcore.ReplySource,
	formatters FormatterFactory,
	cfg config.ChatConfig,
	logger *zap.Logger,
) *ChatUsecase {
	sessions := cache.New(cfg.SessionTTL, cfg.CleanupPeriod)
	sessions.OnEvicted(func(id string, v any) {
		if s, ok := v.(*chatcore.Session); ok {
			s.Close()
			logger.Debug("chat session evicted", zap.String("session_id", id))
		}
	})

	return &ChatUsecase{
		sessions: sessions,
		sessionCfg: chatcore.Config{
			StreamInterval: cfg.StreamInterval,
			SpeechDebounce: cfg.SpeechDebounce,
			ReplyTimeout:   cfg.ReplyTimeout,
		},
		replies:    replies,
		formatters: formatters,
		now:        time.Now,
		logger:     logger,
	}
}

// CreateSession starts a session without voice capabilities, a browser
// client handles audio on its own side.
func (uc *ChatUsecase) CreateSession(ctx context.Context) (*chatcore.Session, error) {
	id := uuid.NewString()
	s := chatcore.NewSession(id, uc.sessionCfg, chatcore.Deps{
		Replies: uc.replies,
		Logger:  uc.logger,
	})

	if err := uc.sessions.Add(id, s, cache.DefaultExpiration); err != nil {
		s.Close()
		return nil, fmt.Errorf("store chat session: %w", err)
	}

	ctxzap.Info(ctx, "chat session created", zap.String("session_id", id))
	return s, nil
}

func (uc *ChatUsecase) GetSession(ctx context.Context, id string) (*chatcore.Session, error) {
	v, ok := uc.sessions.Get(id)
	if !ok {
		return nil, entity.ErrChatSessionNotFound
	}
	s := v.(*chatcore.Session)
	uc.sessions.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// SendMessage attaches the request's files and sends the message. The returned
// subscription is opened before sending and observes the whole session, the
// returned turn marks the events that belong to this send.
// The caller must close the subscription.
func (uc *ChatUsecase) SendMessage(
	ctx context.Context, id string, req *entity.SendMessageRequest,
) (*chatcore.Subscription, uint64, error) {
	if err := validator.ValidateSendMessage(req); err != nil {
		return nil, 0, err
	}

	s, err := uc.GetSession(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	sub := s.Subscribe()
	for _, f := range req.Files {
		if err := s.Attach(f); err != nil {
			sub.Close()
			return nil, 0, fmt.Errorf("attach %s: %w", f.Filename, err)
		}
	}

	turn, err := s.SendTurn(ctx, req.Message)
	if err != nil {
		sub.Close()
		return nil, 0, fmt.Errorf("send message: %w", err)
	}

	ctxzap.Info(ctx, "chat message accepted",
		zap.String("session_id", id),
		zap.Uint64("turn", turn),
		zap.Int("file_count", len(req.Files)),
	)
	return sub, turn, nil
}

func (uc *ChatUsecase) ResetSession(ctx context.Context, id string) error {
	s, err := uc.GetSession(ctx, id)
	if err != nil {
		return err
	}
	if err := s.NewConversation(); err != nil {
		return fmt.Errorf("new conversation: %w", err)
	}

	ctxzap.Info(ctx, "chat conversation reset", zap.String("session_id", id))
	return nil
}

func (uc *ChatUsecase) ExportTranscript(
	ctx context.Context, id string, format entity.ResultFormat,
) (*ExportedTranscript, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: format %q", entity.ErrInvalidParameter, format)
	}

	s, err := uc.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	f, err := uc.formatters.Create(format)
	if err != nil {
		return nil, fmt.Errorf("create formatter: %w", err)
	}

	now := uc.now().UTC()
	transcript := &entity.Transcript{
		SessionID:  id,
		ExportedAt: now,
		Messages:   s.Messages(),
	}

	data, err := f.Format(transcript)
	if err != nil {
		return nil, fmt.Errorf("format transcript: %w", err)
	}

	ctxzap.Info(ctx, "chat transcript exported",
		zap.String("session_id", id),
		zap.String("format", string(format)),
		zap.Int("message_count", len(transcript.Messages)),
		zap.Int("size", len(data)),
	)

	return &ExportedTranscript{
		Data:        data,
		ContentType: f.ContentType(),
		Filename:    fmt.Sprintf("chat-%s-%s%s", id, now.Format("20060102-150405"), f.FileExtension()),
	}, nil
}

func (uc *ChatUsecase) SessionCount() int {
	return uc.sessions.ItemCount()
}

// Close closes every live session.
func (uc *ChatUsecase) Close() {
	for id := range uc.sessions.Items() {
		uc.sessions.Delete(id)
	}
}
