package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/finestate/hub-backend/internal/entity"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}

type fakeReplies struct {
	mu       sync.Mutex
	replies  []string
	err      error
	block    bool
	calls    atomic.Int32
	requests []*entity.ReplyRequest
}

func (f *fakeReplies) Reply(ctx context.Context, req *entity.ReplyRequest) (string, error) {
	n := int(f.calls.Add(1))

	f.mu.Lock()
	f.requests = append(f.requests, req)
	block, err := f.block, f.err
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[min(n, len(f.replies))-1]
	}
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (f *fakeReplies) lastRequest() *entity.ReplyRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

type fakeSynth struct {
	log      *callLog
	mu       sync.Mutex
	spoken   []string
	speaking bool
	cancels  int
	err      error
}

func (f *fakeSynth) Available() bool { return true }

func (f *fakeSynth) Speak(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.log != nil {
		f.log.add("speak")
	}
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	f.speaking = true
	return nil
}

func (f *fakeSynth) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.log != nil {
		f.log.add("cancel")
	}
	f.cancels++
	f.speaking = false
}

func (f *fakeSynth) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.speaking
}

func (f *fakeSynth) chunks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeSynth) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type fakeRecognizer struct {
	log       *callLog
	available bool
	out       chan Transcript
	err       error

	mu   sync.Mutex
	ctxs []context.Context
}

func newFakeRecognizer(log *callLog) *fakeRecognizer {
	return &fakeRecognizer{log: log, available: true, out: make(chan Transcript, 8)}
}

func (f *fakeRecognizer) Available() bool { return f.available }

func (f *fakeRecognizer) Listen(ctx context.Context) (<-chan Transcript, error) {
	if f.log != nil {
		f.log.add("listen")
	}
	f.mu.Lock()
	f.ctxs = append(f.ctxs, ctx)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeRecognizer) lastCtx() context.Context {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ctxs) == 0 {
		return nil
	}
	return f.ctxs[len(f.ctxs)-1]
}

func fastConfig() Config {
	return Config{
		StreamInterval: time.Millisecond,
		SpeechDebounce: time.Second,
		ReplyTimeout:   5 * time.Second,
	}
}

// waitEvent reads events until match returns true.
func waitEvent(t *testing.T, sub *Subscription, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev := <-sub.Events():
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
			return Event{}
		}
	}
}

func isPhase(p Phase) func(Event) bool {
	return func(ev Event) bool { return ev.Kind == EventPhase && ev.Phase == p }
}
