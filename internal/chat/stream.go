package chat

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// streamRun is one reply being revealed. Only runStream reads its channels.
type streamRun struct {
	reply    string
	turn     uint64
	stop     chan struct{}
	stopOnce sync.Once
	mute     chan struct{}
}

func newStreamRun(reply string, turn uint64) *streamRun {
	return &streamRun{
		reply: reply,
		turn:  turn,
		stop:  make(chan struct{}),
		mute:  make(chan struct{}, 1),
	}
}

func (r *streamRun) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// dropSpeech discards the speech buffered so far.
func (r *streamRun) dropSpeech() {
	select {
	case r.mute <- struct{}{}:
	default:
	}
}

// runStream owns the character ticker and the speech debounce timer.
// Speech is flushed after SpeechDebounce without new characters or at the
// end of a sentence, whichever comes first.
func (s *Session) runStream(run *streamRun) {
	runes := []rune(run.reply)

	ticker := time.NewTicker(s.cfg.StreamInterval)
	defer ticker.Stop()

	debounce := time.NewTimer(s.cfg.SpeechDebounce)
	debounce.Stop()
	defer debounce.Stop()

	var visible, speech strings.Builder
	for i := 0; i < len(runes); {
		select {
		case <-run.stop:
			return

		case <-run.mute:
			speech.Reset()
			debounce.Stop()

		case <-debounce.C:
			s.speak(speech.String())
			speech.Reset()

		case <-ticker.C:
			r := runes[i]
			i++
			visible.WriteRune(r)
			speech.WriteRune(r)

			s.events.publish(Event{Kind: EventDelta, Delta: string(r), Partial: visible.String(), Turn: run.turn})

			if endsSentence(r) {
				debounce.Stop()
				s.speak(speech.String())
				speech.Reset()
				continue
			}
			debounce.Reset(s.cfg.SpeechDebounce)
		}
	}

	s.logger.Debug("reply streamed", zap.Int("chars", len(runes)))
	s.finishStream(run, speech.String())
}

func endsSentence(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// speak hands text to the synthesizer unless voice capture is active.
// Synthesis failures are logged and reset the synthesizer.
func (s *Session) speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" || s.synth == nil {
		return
	}

	s.mu.Lock()
	muted := s.listening || s.closed
	s.mu.Unlock()
	if muted {
		return
	}

	if err := s.synth.Speak(text); err != nil {
		s.logger.Warn("speech synthesis failed", zap.Error(err))
		s.synth.Cancel()
	}
}

// Speaking reports whether the synthesizer is currently producing audio.
func (s *Session) Speaking() bool {
	return s.synth != nil && s.synth.Speaking()
}
