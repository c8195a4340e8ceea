package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/integration/asr"
	"github.com/finestate/hub-backend/internal/voice"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordingReplies struct {
	mu   sync.Mutex
	reqs []*entity.ReplyRequest
	err  error
}

func (r *recordingReplies) Reply(ctx context.Context, req *entity.ReplyRequest) (string, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return "echo: " + req.Message, nil
}

func (r *recordingReplies) last() *entity.ReplyRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reqs) == 0 {
		return nil
	}
	return r.reqs[len(r.reqs)-1]
}

type stubExtractor struct{ text string }

func (s stubExtractor) Extract(context.Context, []byte) (string, error) {
	return s.text, nil
}

type stubHub struct {
	result *entity.UploadResult
	err    error
	calls  int
}

func (h *stubHub) Upload(ctx context.Context, filename string, data []byte) (*entity.UploadResult, error) {
	h.calls++
	return h.result, h.err
}

type stubMirror struct{ names []string }

func (m *stubMirror) UploadFile(ctx context.Context, filename string, data []byte) error {
	m.names = append(m.names, filename)
	return nil
}

type fixture struct {
	replies *recordingReplies
	session *chatcore.Session
	hub     *stubHub
	deps    Deps
}

func newFixture(t *testing.T, recognizer chatcore.Recognizer) *fixture {
	t.Helper()
	replies := &recordingReplies{}
	s := chatcore.NewSession("", chatcore.Config{
		StreamInterval: time.Millisecond,
		SpeechDebounce: 5 * time.Millisecond,
		ReplyTimeout:   time.Second,
	}, chatcore.Deps{Replies: replies, Recognizer: recognizer, Logger: zap.NewNop()})
	t.Cleanup(s.Close)

	hub := &stubHub{}
	return &fixture{
		replies: replies,
		session: s,
		hub:     hub,
		deps: Deps{
			Session:   s,
			Extractor: stubExtractor{text: "Lease term: ten years"},
			Hub:       hub,
			Logger:    zap.NewNop(),
		},
	}
}

func run(t *testing.T, deps Deps, input string) string {
	t.Helper()
	out := &syncBuffer{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, New(deps, strings.NewReader(input), out).Run(ctx))
	return out.String()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestConsoleRendersStreamedReply(t *testing.T) {
	f := newFixture(t, nil)

	out := run(t, f.deps, "hello\n")
	assert.Contains(t, out, "assistant> echo: hello\n")
	assert.Equal(t, 1, strings.Count(out, "echo: hello"))
}

func TestConsoleEmptyInputIsNoop(t *testing.T) {
	f := newFixture(t, nil)

	out := run(t, f.deps, "\n   \n")
	assert.NotContains(t, out, "assistant>")
	assert.Nil(t, f.replies.last())
}

func TestConsoleShowsBackendFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.replies.err = errors.New("connection refused")

	out := run(t, f.deps, "hello\n")
	assert.Contains(t, out, "! "+chatcore.StatusBackendUnreachable)
}

func TestConsoleValidatesPathsBeforeIO(t *testing.T) {
	f := newFixture(t, nil)

	out := run(t, f.deps, "/attach\n/attach notes.txt\n/upload\n/upload report.DOCX\n")
	assert.Equal(t, 2, strings.Count(out, msgChoosePDF))
	assert.Equal(t, 2, strings.Count(out, msgOnlyPDF))
	assert.Zero(t, f.hub.calls)
	assert.Empty(t, f.session.Files())
}

func TestConsoleAttachAndSendFilesOnly(t *testing.T) {
	f := newFixture(t, nil)
	mirror := &stubMirror{}
	f.deps.Mirror = mirror
	path := writeFile(t, "lease.pdf", []byte("%PDF-1.4 fake"))

	out := run(t, f.deps, "/attach "+path+"\n/files\n\n")
	assert.Contains(t, out, "Attached lease.pdf (21 characters of text).")
	assert.Contains(t, out, "1. lease.pdf")

	req := f.replies.last()
	require.NotNil(t, req)
	assert.Equal(t, []entity.FileSelection{{Filename: "lease.pdf", Text: "Lease term: ten years"}}, req.Files)
	assert.Equal(t, []string{"lease.pdf"}, mirror.names)
	assert.Empty(t, f.session.Files())
}

func TestConsoleAttachNonPDFContent(t *testing.T) {
	f := newFixture(t, nil)
	path := writeFile(t, "fake.pdf", []byte("hello"))

	out := run(t, f.deps, "/attach "+path+"\n")
	assert.Contains(t, out, entity.PDFHeaderMissing)
	require.Len(t, f.session.Files(), 1)
	assert.Empty(t, f.session.Files()[0].Text)
}

func TestConsoleUpload(t *testing.T) {
	f := newFixture(t, nil)
	parseErr := entity.PDFHeaderMissing
	f.hub.result = &entity.UploadResult{OK: true, Path: "/uploads/report.pdf", ParseError: &parseErr}
	path := writeFile(t, "report.pdf", []byte("data"))

	out := run(t, f.deps, "/upload "+path+"\n")
	assert.Contains(t, out, "Upload successful. Stored at /uploads/report.pdf")
	assert.Contains(t, out, "Note: "+entity.PDFHeaderMissing)

	f.hub.err = errors.New("boom")
	out = run(t, f.deps, "/upload "+path+"\n")
	assert.Contains(t, out, msgUploadFailed)

	out = run(t, f.deps, "/upload "+filepath.Join(t.TempDir(), "missing.pdf")+"\n")
	assert.Contains(t, out, "Could not open")
}

func TestConsoleVoiceUnavailable(t *testing.T) {
	f := newFixture(t, nil)

	out := run(t, f.deps, "/voice\n")
	assert.Contains(t, out, msgVoiceOff)
}

func TestConsoleCommands(t *testing.T) {
	f := newFixture(t, nil)

	out := run(t, f.deps, "hello\n/new\n/help\n/bogus\n/files\n/quit\nnever sent\n")
	assert.Contains(t, out, "--- new conversation ---")
	assert.Contains(t, out, "/attach <file.pdf>")
	assert.Contains(t, out, msgUnknownCommand)
	assert.Contains(t, out, "No files attached.")
	assert.Eventually(t, func() bool { return f.replies.last() != nil }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.session.Messages())
}

func TestConsoleVoiceClipSendsTranscript(t *testing.T) {
	recognizer := voice.NewClipRecognizer(asr.NewMockConnector(zap.NewNop()), 0, zap.NewNop())
	f := newFixture(t, recognizer)
	f.deps.Clips = recognizer
	clip := writeFile(t, "question.wav", []byte("RIFF"))

	pr, pw := io.Pipe()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- New(f.deps, pr, out).Run(context.Background())
	}()

	_, err := pw.Write([]byte("/voice " + clip + "\n"))
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "assistant> echo: "+asr.MockTranscript)
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "[listening]")
	assert.Contains(t, out.String(), "heard: What is")

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)
}
