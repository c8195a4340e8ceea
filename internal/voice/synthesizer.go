package voice

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
)

const maxQueuedUtterances = 64

// CommandSynthesizer speaks through a local text-to-speech binary such as
// espeak-ng or say. Text is written to the command's stdin, one process per
// utterance, in the order it was queued.
type CommandSynthesizer struct {
	logger *zap.Logger
	path   string
	args   []string

	mu       sync.Mutex
	queue    []string
	gen      uint64
	running  bool
	stopProc context.CancelFunc

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// NewCommandSynthesizer picks the first configured command found on PATH.
// Each command may carry arguments, e.g. "espeak-ng -s 170".
func NewCommandSynthesizer(cfg config.SpeechConfig, logger *zap.Logger) *CommandSynthesizer {
	s := &CommandSynthesizer{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	if cfg.Disabled {
		logger.Info("speech output disabled")
		return s
	}

	for _, candidate := range cfg.Commands {
		fields := strings.Fields(candidate)
		if len(fields) == 0 {
			continue
		}
		path, err := exec.LookPath(fields[0])
		if err != nil {
			continue
		}
		s.path = path
		s.args = fields[1:]
		break
	}

	if s.path == "" {
		logger.Info("no speech command found, speech output unavailable", zap.Strings("candidates", cfg.Commands))
		return s
	}

	logger.Info("speech output enabled", zap.String("command", s.path))
	s.wg.Add(1)
	go s.loop()

	return s
}

func (s *CommandSynthesizer) Available() bool {
	return s.path != ""
}

func (s *CommandSynthesizer) Speak(text string) error {
	if !s.Available() {
		return entity.ErrVoiceUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return errors.New("synthesizer closed")
	default:
	}
	if len(s.queue) >= maxQueuedUtterances {
		s.mu.Unlock()
		return fmt.Errorf("speech queue full (%d utterances)", maxQueuedUtterances)
	}
	s.queue = append(s.queue, text)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

// Cancel stops the current utterance and drops everything queued.
func (s *CommandSynthesizer) Cancel() {
	s.mu.Lock()
	s.gen++
	s.queue = nil
	stop := s.stopProc
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (s *CommandSynthesizer) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running || len(s.queue) > 0
}

// Close cancels speech and stops the worker.
func (s *CommandSynthesizer) Close() {
	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		return
	default:
		close(s.done)
	}
	s.mu.Unlock()

	s.Cancel()
	s.wg.Wait()
}

func (s *CommandSynthesizer) loop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		for {
			text, gen, ok := s.next()
			if !ok {
				break
			}
			s.say(text, gen)
		}
	}
}

func (s *CommandSynthesizer) next() (string, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return "", 0, false
	}
	text := s.queue[0]
	s.queue = s.queue[1:]
	s.running = true
	return text, s.gen, true
}

func (s *CommandSynthesizer) say(text string, gen uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if gen != s.gen {
		s.running = false
		s.mu.Unlock()
		return
	}
	s.stopProc = cancel
	s.mu.Unlock()

	cmd := exec.CommandContext(ctx, s.path, s.args...)
	cmd.Stdin = strings.NewReader(text)
	err := cmd.Run()

	s.mu.Lock()
	s.stopProc = nil
	s.running = false
	s.mu.Unlock()

	if err != nil && ctx.Err() == nil {
		s.logger.Warn("speech command failed", zap.String("command", s.path), zap.Error(err))
	}
}
