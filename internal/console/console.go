package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/pkg/pdftext"
	"github.com/finestate/hub-backend/internal/pkg/validator"
)

const (
	msgChoosePDF       = "Please choose a PDF file."
	msgOnlyPDF         = "Only PDF files are accepted."
	msgUploadOK        = "Upload successful."
	msgUploadFailed    = "Upload failed. Check console for details."
	msgVoiceOff        = "Voice input is not available."
	msgUnknownCommand  = "Unknown command. Type /help for the list of commands."
	idlePollInterval   = 10 * time.Millisecond
	maxAttachmentBytes = 64 << 20
)

const helpText = `Commands:
  <text>              send a message
  /attach <file.pdf>  attach a PDF to the next message
  /files              list attached files
  /voice [clip]       start or stop voice input, optionally from an audio clip
  /upload <file.pdf>  upload a PDF to the hub
  /new                start a new conversation
  /quit               exit`

type Deps struct {
	Session   ChatSession
	Extractor TextExtractor
	Hub       HubUploader
	// Mirror is nil unless attachments are forwarded to the chat backend.
	Mirror AttachmentMirror
	// Clips is nil when voice input is unavailable.
	Clips  ClipQueue
	Logger *zap.Logger
}

// Console is a line oriented chat client. Replies are rendered as they stream.
type Console struct {
	session   ChatSession
	extractor TextExtractor
	hub       HubUploader
	mirror    AttachmentMirror
	clips     ClipQueue
	logger    *zap.Logger

	in  io.Reader
	out *lockedWriter

	// turn bookkeeping lets Run wait for replies it started to render
	mu         sync.Mutex
	turns      int
	seenTurns  int
	renderIdle bool
}

func New(deps Deps, in io.Reader, out io.Writer) *Console {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Console{
		session:    deps.Session,
		extractor:  deps.Extractor,
		hub:        deps.Hub,
		mirror:     deps.Mirror,
		clips:      deps.Clips,
		logger:     logger,
		in:         in,
		out:        &lockedWriter{w: out},
		renderIdle: true,
	}
}

// Run reads commands until /quit, end of input or ctx is done. At end of
// input it waits for a reply in progress to finish rendering.
func (c *Console) Run(ctx context.Context) error {
	sub := c.session.Subscribe()
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		c.render(sub)
	}()
	defer func() {
		sub.Close()
		<-rendered
	}()

	c.out.println("CBRE Intelligence Hub chat. Type /help for commands.")

	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		scanner := bufio.NewScanner(c.in)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			c.waitIdle(ctx)
			return err

		case line := <-lines:
			if quit := c.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") {
		if trimmed == "" && len(c.session.Files()) == 0 {
			return false
		}
		c.addTurns(1)
		if err := c.session.Send(ctx, trimmed); err != nil {
			c.addTurns(-1)
			c.logger.Warn("send failed", zap.Error(err))
			c.out.println("Could not send the message.")
		}
		return false
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.out.println(helpText)
	case "/attach":
		c.attach(ctx, arg)
	case "/files":
		c.listFiles()
	case "/voice":
		c.toggleVoice(ctx, arg)
	case "/upload":
		c.upload(ctx, arg)
	case "/new":
		if err := c.session.NewConversation(); err != nil {
			c.logger.Warn("new conversation failed", zap.Error(err))
		}
	default:
		c.out.println(msgUnknownCommand)
	}
	return false
}

func (c *Console) attach(ctx context.Context, path string) {
	data, ok := c.readPDF(path)
	if !ok {
		return
	}
	name := filepath.Base(path)

	var text string
	if pdftext.HasPDFHeader(data) {
		extracted, err := c.extractor.Extract(ctx, data)
		if err != nil {
			c.logger.Warn("text extraction failed", zap.String("file", name), zap.Error(err))
			c.out.printf("Could not read text from %s, attaching it without text.\n", name)
		}
		text = extracted
	} else {
		c.out.printf("%s: %s\n", name, entity.PDFHeaderMissing)
	}

	if err := c.session.Attach(entity.FileSelection{Filename: name, Text: text}); err != nil {
		c.logger.Warn("attach failed", zap.Error(err))
		c.out.println("Could not attach the file.")
		return
	}
	c.out.printf("Attached %s (%d characters of text).\n", name, len([]rune(text)))

	if c.mirror != nil {
		if err := c.mirror.UploadFile(ctx, name, data); err != nil {
			c.logger.Warn("attachment mirror failed", zap.String("file", name), zap.Error(err))
			c.out.printf("Could not send %s to the assistant backend.\n", name)
		}
	}
}

func (c *Console) listFiles() {
	files := c.session.Files()
	if len(files) == 0 {
		c.out.println("No files attached.")
		return
	}
	for i, f := range files {
		c.out.printf("%d. %s\n", i+1, f.Filename)
	}
}

func (c *Console) toggleVoice(ctx context.Context, clip string) {
	if clip != "" && c.clips != nil {
		c.clips.Queue(clip)
	}

	if err := c.session.ToggleVoice(ctx); err != nil {
		if errors.Is(err, entity.ErrVoiceUnavailable) {
			c.out.println(msgVoiceOff)
			return
		}
		c.logger.Warn("voice toggle failed", zap.Error(err))
	}
}

func (c *Console) upload(ctx context.Context, path string) {
	data, ok := c.readPDF(path)
	if !ok {
		return
	}

	result, err := c.hub.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		c.logger.Error("upload failed", zap.String("file", path), zap.Error(err))
		c.out.println(msgUploadFailed)
		return
	}

	c.out.printf("%s Stored at %s\n", msgUploadOK, result.Path)
	if result.ParseError != nil {
		c.out.printf("Note: %s\n", *result.ParseError)
	}
}

// readPDF validates the path before touching the filesystem.
func (c *Console) readPDF(path string) ([]byte, bool) {
	if err := validator.ValidatePDFPath(path); err != nil {
		if errors.Is(err, entity.ErrMissingField) {
			c.out.println(msgChoosePDF)
		} else {
			c.out.println(msgOnlyPDF)
		}
		return nil, false
	}

	info, err := os.Stat(path)
	if err != nil {
		c.out.printf("Could not open %s.\n", path)
		return nil, false
	}
	if info.Size() > maxAttachmentBytes {
		c.out.printf("%s is too large.\n", path)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.logger.Warn("read file failed", zap.String("file", path), zap.Error(err))
		c.out.printf("Could not open %s.\n", path)
		return nil, false
	}
	return data, true
}

func (c *Console) addTurns(n int) {
	c.mu.Lock()
	c.turns += n
	c.mu.Unlock()
}

// observePhase is called by the renderer for every phase event it prints.
func (c *Console) observePhase(p chatcore.Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p == chatcore.PhaseSending {
		c.seenTurns++
	}
	c.renderIdle = p == chatcore.PhaseIdle
}

// rendered reports whether every reply started from input has been printed.
func (c *Console) rendered() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seenTurns >= c.turns && c.renderIdle
}

func (c *Console) waitIdle(ctx context.Context) {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()

	for !c.rendered() || c.session.Phase() != chatcore.PhaseIdle {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

func (l *lockedWriter) println(s string) {
	l.printf("%s\n", s)
}
