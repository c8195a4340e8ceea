package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/entity"
)

// StatusBackendUnreachable is shown inline when no reply could be produced.
const StatusBackendUnreachable = "Sorry, I couldn't reach the assistant. Please try again."

type Config struct {
	// StreamInterval is the delay between two revealed characters.
	StreamInterval time.Duration
	// SpeechDebounce is the idle time after the last character before
	// buffered speech is flushed to the synthesizer.
	SpeechDebounce time.Duration
	ReplyTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		StreamInterval: 20 * time.Millisecond,
		SpeechDebounce: 700 * time.Millisecond,
		ReplyTimeout:   60 * time.Second,
	}
}

type Deps struct {
	Replies     ReplySource
	Synthesizer Synthesizer
	Recognizer  Recognizer
	Logger      *zap.Logger
}

// Snapshot is a read-only copy of the session state.
type Snapshot struct {
	ID          string
	Phase       Phase
	Messages    []entity.ChatMessage
	Files       []entity.FileSelection
	Input       string
	Status      string
	Listening   bool
	VoiceInput  bool
	VoiceOutput bool
}

// Session is one conversation. Phases move idle -> sending -> streaming -> idle.
// All state lives behind mu. Events are published after mu is released.
type Session struct {
	id         string
	cfg        Config
	replies    ReplySource
	synth      Synthesizer
	recognizer Recognizer
	logger     *zap.Logger
	events     *broker

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu          sync.Mutex
	phase       Phase
	messages    []entity.ChatMessage
	files       []entity.FileSelection
	input       string
	status      string
	replyGen    uint64
	cancelReply context.CancelFunc
	stream      *streamRun
	listening   bool
	listenGen   uint64
	stopListen  context.CancelFunc
	closed      bool
}

// NewSession detects voice capabilities once. Unavailable capabilities stay
// disabled for the lifetime of the session.
func NewSession(id string, cfg Config, deps Deps) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session_id", id))

	defaults := DefaultConfig()
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = defaults.StreamInterval
	}
	if cfg.SpeechDebounce <= 0 {
		cfg.SpeechDebounce = defaults.SpeechDebounce
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = defaults.ReplyTimeout
	}

	baseCtx, cancel := context.WithCancel(ctxzap.ToContext(context.Background(), logger))

	s := &Session{
		id:      id,
		cfg:     cfg,
		replies: deps.Replies,
		logger:  logger,
		events:  newBroker(),
		baseCtx: baseCtx,
		cancel:  cancel,
		phase:   PhaseIdle,
	}

	if deps.Synthesizer != nil && deps.Synthesizer.Available() {
		s.synth = deps.Synthesizer
	} else {
		logger.Debug("speech synthesis unavailable")
	}

	if deps.Recognizer != nil && deps.Recognizer.Available() {
		s.recognizer = deps.Recognizer
	} else {
		logger.Debug("speech recognition unavailable")
	}

	return s
}

func (s *Session) ID() string {
	return s.id
}

// Subscribe returns a stream of state changes. A subscription on a closed
// session is returned already closed.
func (s *Session) Subscribe() *Subscription {
	sub := s.events.subscribe()

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		sub.Close()
	}

	return sub
}

// Send appends the user message and starts producing the reply in the
// background. Empty text without attached files is a no-op. A reply that
// is still streaming is committed in full and its pending speech dropped.
func (s *Session) Send(ctx context.Context, text string) error {
	_, err := s.SendTurn(ctx, text)
	return err
}

// SendTurn is Send that also returns the turn stamped on every event of
// this exchange. A no-op send returns turn zero.
func (s *Session) SendTurn(ctx context.Context, text string) (uint64, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, entity.ErrChatSessionClosed
	}
	if text == "" && len(s.files) == 0 {
		s.mu.Unlock()
		return 0, nil
	}

	var pending []Event
	interrupted := s.stream != nil
	if committed := s.interruptLocked(true); committed != nil {
		pending = append(pending, Event{Kind: EventMessage, Message: committed, Turn: s.replyGen})
	}

	files := s.files
	s.files = nil

	userMsg := s.appendLocked(entity.SenderUser, displayText(text, files))
	history := append([]entity.ChatMessage(nil), s.messages...)
	s.input = ""
	s.status = ""
	s.phase = PhaseSending

	s.replyGen++
	gen := s.replyGen
	replyCtx, cancel := context.WithTimeout(s.baseCtx, s.cfg.ReplyTimeout)
	s.cancelReply = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	if interrupted && s.synth != nil {
		s.synth.Cancel()
	}

	ctxzap.Debug(ctx, "chat message sent",
		zap.String("session_id", s.id),
		zap.Int("length", len(text)),
		zap.Int("file_count", len(files)),
	)

	pending = append(pending,
		Event{Kind: EventMessage, Message: &userMsg, Turn: gen},
		Event{Kind: EventInput, Turn: gen},
		Event{Kind: EventPhase, Phase: PhaseSending, Turn: gen},
	)
	for _, ev := range pending {
		s.events.publish(ev)
	}

	req := &entity.ReplyRequest{Message: text, Files: files, History: history}
	go s.respond(replyCtx, cancel, gen, req)

	return gen, nil
}

func (s *Session) respond(ctx context.Context, cancel context.CancelFunc, gen uint64, req *entity.ReplyRequest) {
	defer s.wg.Done()
	defer cancel()

	reply, err := s.replies.Reply(ctx, req)

	s.mu.Lock()
	if s.closed || gen != s.replyGen {
		s.mu.Unlock()
		return
	}
	s.cancelReply = nil

	if err != nil {
		s.phase = PhaseIdle
		s.status = StatusBackendUnreachable
		s.mu.Unlock()

		s.logger.Warn("failed to get chat reply", zap.Error(err))
		s.events.publish(Event{Kind: EventStatus, Status: StatusBackendUnreachable, Turn: gen})
		s.events.publish(Event{Kind: EventPhase, Phase: PhaseIdle, Turn: gen})
		return
	}

	run := newStreamRun(reply, gen)
	s.stream = run
	s.phase = PhaseStreaming
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventPhase, Phase: PhaseStreaming, Turn: gen})
	s.runStream(run)
}

// finishStream commits a fully revealed reply unless it was interrupted meanwhile.
func (s *Session) finishStream(run *streamRun, unspoken string) {
	s.mu.Lock()
	if s.stream != run {
		s.mu.Unlock()
		return
	}
	s.stream = nil
	s.phase = PhaseIdle
	msg := s.appendLocked(entity.SenderBot, run.reply)
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventMessage, Message: &msg, Turn: run.turn})
	s.events.publish(Event{Kind: EventPhase, Phase: PhaseIdle, Turn: run.turn})
	s.speak(unspoken)
}

// interruptLocked cancels an in-flight reply request and stops the stream.
// With commit the interrupted reply is appended in full.
func (s *Session) interruptLocked(commit bool) *entity.ChatMessage {
	if s.cancelReply != nil {
		s.cancelReply()
		s.cancelReply = nil
	}

	run := s.stream
	if run == nil {
		return nil
	}
	s.stream = nil
	run.halt()

	if !commit {
		return nil
	}
	msg := s.appendLocked(entity.SenderBot, run.reply)
	return &msg
}

func (s *Session) appendLocked(sender entity.Sender, text string) entity.ChatMessage {
	msg := entity.ChatMessage{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		SentAt: time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)
	return msg
}

// NewConversation clears messages, attachments, input and any reply in progress.
func (s *Session) NewConversation() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrChatSessionClosed
	}
	s.interruptLocked(false)
	s.replyGen++
	s.messages = nil
	s.files = nil
	s.input = ""
	s.status = ""
	s.phase = PhaseIdle
	s.mu.Unlock()

	if s.synth != nil {
		s.synth.Cancel()
	}

	s.events.publish(Event{Kind: EventReset})
	s.events.publish(Event{Kind: EventPhase, Phase: PhaseIdle})
	return nil
}

// Attach adds a file to the selection sent with the next message.
func (s *Session) Attach(file entity.FileSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.ErrChatSessionClosed
	}
	s.files = append(s.files, file)
	return nil
}

func (s *Session) Files() []entity.FileSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.FileSelection(nil), s.files...)
}

func (s *Session) Messages() []entity.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.ChatMessage(nil), s.messages...)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// SetInput replaces the pending input text.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.input = text
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventInput, Input: text})
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:          s.id,
		Phase:       s.phase,
		Messages:    append([]entity.ChatMessage(nil), s.messages...),
		Files:       append([]entity.FileSelection(nil), s.files...),
		Input:       s.input,
		Status:      s.status,
		Listening:   s.listening,
		VoiceInput:  s.recognizer != nil,
		VoiceOutput: s.synth != nil,
	}
}

// Close stops recognition, synthesis and the streaming loop, then waits for
// every background goroutine. No event is delivered after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.interruptLocked(false)
	stop := s.stopListen
	s.stopListen = nil
	s.listening = false
	s.phase = PhaseIdle
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.cancel()
	if s.synth != nil {
		s.synth.Cancel()
	}

	s.events.closeAll()
	s.wg.Wait()

	s.logger.Debug("chat session closed")
}

func displayText(text string, files []entity.FileSelection) string {
	if text != "" || len(files) == 0 {
		return text
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Filename)
	}
	return "Attached: " + strings.Join(names, ", ")
}
