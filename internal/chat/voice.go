package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/entity"
)

// ToggleVoice starts or stops a recognition session. Starting one cancels
// speech synthesis and drops buffered speech before capture begins.
// Interim transcripts update the input, a final one is sent.
func (s *Session) ToggleVoice(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return entity.ErrChatSessionClosed
	}
	if s.recognizer == nil {
		s.mu.Unlock()
		return entity.ErrVoiceUnavailable
	}

	if s.listening {
		stop := s.stopListen
		s.listening = false
		s.stopListen = nil
		s.listenGen++
		s.mu.Unlock()

		stop()
		s.events.publish(Event{Kind: EventVoice, Listening: false})
		return nil
	}

	s.listening = true
	s.listenGen++
	gen := s.listenGen
	listenCtx, stop := context.WithCancel(s.baseCtx)
	s.stopListen = stop
	run := s.stream
	s.wg.Add(1)
	s.mu.Unlock()

	if s.synth != nil {
		s.synth.Cancel()
	}
	if run != nil {
		run.dropSpeech()
	}

	s.logger.Debug("voice capture started")
	s.events.publish(Event{Kind: EventVoice, Listening: true})

	go s.listen(listenCtx, gen)
	return nil
}

func (s *Session) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

func (s *Session) listen(ctx context.Context, gen uint64) {
	defer s.wg.Done()

	transcripts, err := s.recognizer.Listen(ctx)
	if err != nil {
		s.logger.Warn("speech recognition failed to start", zap.Error(err))
		s.endListening(gen)
		return
	}

	for {
		select {
		case <-ctx.Done():
			s.endListening(gen)
			return

		case t, ok := <-transcripts:
			if !ok {
				s.endListening(gen)
				return
			}

			if t.Err != nil {
				s.logger.Warn("speech recognition failed", zap.Error(t.Err))
				s.endListening(gen)
				return
			}

			if !t.Final {
				s.setVoiceInput(gen, t.Text)
				continue
			}

			if !s.setVoiceInput(gen, t.Text) {
				return
			}
			s.endListening(gen)
			if strings.TrimSpace(t.Text) != "" {
				if err := s.Send(s.baseCtx, t.Text); err != nil {
					s.logger.Debug("implicit send skipped", zap.Error(err))
				}
			}
			return
		}
	}
}

// setVoiceInput applies a transcript if gen is still the active capture.
func (s *Session) setVoiceInput(gen uint64, text string) bool {
	s.mu.Lock()
	if s.closed || !s.listening || s.listenGen != gen {
		s.mu.Unlock()
		return false
	}
	s.input = text
	s.mu.Unlock()

	s.events.publish(Event{Kind: EventInput, Input: text})
	return true
}

func (s *Session) endListening(gen uint64) {
	s.mu.Lock()
	if !s.listening || s.listenGen != gen {
		s.mu.Unlock()
		return
	}
	s.listening = false
	stop := s.stopListen
	s.stopListen = nil
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.events.publish(Event{Kind: EventVoice, Listening: false})
}
