package builder

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/unidoc/unioffice/common/license"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/api"
	chatapi "github.com/finestate/hub-backend/internal/api/chat"
	uploadapi "github.com/finestate/hub-backend/internal/api/upload"
	chatcore "github.com/finestate/hub-backend/internal/chat"
	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/console"
	"github.com/finestate/hub-backend/internal/integration/asr"
	"github.com/finestate/hub-backend/internal/integration/chatbackend"
	"github.com/finestate/hub-backend/internal/integration/events"
	"github.com/finestate/hub-backend/internal/integration/hub"
	"github.com/finestate/hub-backend/internal/integration/openai"
	"github.com/finestate/hub-backend/internal/pkg/formatter"
	"github.com/finestate/hub-backend/internal/pkg/pdftext"
	"github.com/finestate/hub-backend/internal/storage"
	chatuc "github.com/finestate/hub-backend/internal/usecase/chat"
	uploaduc "github.com/finestate/hub-backend/internal/usecase/upload"
	"github.com/finestate/hub-backend/internal/voice"
)

// transcriptReplayInterval paces interim voice transcripts in the console.
const transcriptReplayInterval = 120 * time.Millisecond

func Build() (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	// Upload storage
	uploadDir := filepath.Join(cfg.UploadCfg.PublicDir, cfg.UploadCfg.Subdir)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	store := storage.NewLocalStore(uploadDir, cfg.UploadCfg.PublicPrefix)
	extractor := pdftext.NewExtractor(cfg.UploadCfg.MaxPDFPages)
	logger.Info("Upload storage initialized", zap.String("dir", uploadDir))

	// Event publishing
	var publisher eventPublisher = events.NopPublisher{}
	if cfg.NatsCfg.URL != "" {
		natsPublisher, err := events.NewPublisher(cfg.NatsCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup nats publisher: %w", err)
		}
		publisher = natsPublisher
	} else {
		logger.Info("NATS_URL not set, upload events are not published")
	}

	// Reply source
	replies, _, err := buildReplySource(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Use cases
	uploadUC := uploaduc.NewUsecase(store, extractor, publisher, logger)
	formatters := formatter.NewFactory(setupDOCXLicense(cfg.UnidocLicenseAPIKey, logger))
	chatUC := chatuc.NewUsecase(replies, formatters, cfg.ChatCfg, logger)
	logger.Info("Use cases initialized")

	// API handlers and router
	uploadHandler := uploadapi.NewHandler(uploadUC, cfg.UploadCfg)
	chatHandler := chatapi.NewHandler(chatUC)
	router := api.SetupRouter(cfg, uploadHandler, chatHandler, logger)
	logger.Info("HTTP router configured")

	// WriteTimeout stays unset so chat replies can stream for as long as they need
	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:    server,
		publisher: publisher,
		chat:      chatUC,
		logger:    logger,
	}, nil
}

// BuildConsole creates the terminal chat client.
func BuildConsole() (*ConsoleApp, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := setupConsoleLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	replies, mirror, err := buildReplySource(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Voice: synthesis through a local TTS binary, recognition through the ASR service
	synth := voice.NewCommandSynthesizer(cfg.SpeechCfg, logger)

	var transcriber voice.Transcriber
	switch {
	case cfg.EnableMocks:
		transcriber = asr.NewMockConnector(logger)
	case cfg.ASRConnectorCfg.Url != "":
		transcriber = asr.NewConnector(cfg.ASRConnectorCfg, logger)
	default:
		logger.Info("ASR_SERVICE_URL not set, voice input unavailable")
	}
	var recognizer *voice.ClipRecognizer
	if transcriber != nil {
		recognizer = voice.NewClipRecognizer(transcriber, transcriptReplayInterval, logger)
	}

	deps := chatcore.Deps{
		Replies:     replies,
		Synthesizer: synth,
		Logger:      logger,
	}
	if recognizer != nil {
		deps.Recognizer = recognizer
	}
	session := chatcore.NewSession("", chatcore.Config{
		StreamInterval: cfg.ChatCfg.StreamInterval,
		SpeechDebounce: cfg.ChatCfg.SpeechDebounce,
		ReplyTimeout:   cfg.ChatCfg.ReplyTimeout,
	}, deps)

	consoleDeps := console.Deps{
		Session:   session,
		Extractor: pdftext.NewExtractor(cfg.UploadCfg.MaxPDFPages),
		Hub:       hub.NewConnector(cfg.HubConnectorCfg, logger),
		Logger:    logger,
	}
	if mirror != nil {
		consoleDeps.Mirror = mirror
	}
	if recognizer != nil {
		consoleDeps.Clips = recognizer
	}

	return &ConsoleApp{
		console: console.New(consoleDeps, os.Stdin, os.Stdout),
		session: session,
		synth:   synth,
		logger:  logger,
	}, nil
}

// buildReplySource picks the chat reply source. The second result is the
// attachment mirror, nil unless the backend should receive attachment bytes.
func buildReplySource(cfg *config.Config, logger *zap.Logger) (chatcore.ReplySource, console.AttachmentMirror, error) {
	if cfg.EnableMocks {
		table, err := config.LoadReplies(cfg.RepliesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load canned replies: %w", err)
		}
		logger.Info("Using mock chat backend", zap.Int("canned_replies", len(table.Replies)))

		mock := chatbackend.NewMockConnector(table, logger)
		if cfg.ChatBackendCfg.MirrorAttachments {
			return mock, mock, nil
		}
		return mock, nil, nil
	}

	switch cfg.ChatProvider {
	case config.ProviderOpenAI:
		logger.Info("Using OpenAI chat provider", zap.String("model", cfg.OpenAICfg.Model))
		return openai.NewProvider(cfg.OpenAICfg, logger), nil, nil
	default:
		logger.Info("Using chat backend", zap.String("url", cfg.ChatBackendCfg.Url))
		backend := chatbackend.NewConnector(cfg.ChatBackendCfg, logger)
		if cfg.ChatBackendCfg.MirrorAttachments {
			return backend, backend, nil
		}
		return backend, nil, nil
	}
}

// setupDOCXLicense activates unioffice with a metered key and reports whether
// DOCX transcripts can be produced.
func setupDOCXLicense(apiKey string, logger *zap.Logger) bool {
	if apiKey == "" {
		logger.Info("UNIDOC_LICENSE_API_KEY not set, DOCX transcript export is disabled")
		return false
	}
	if err := license.SetMeteredKey(apiKey); err != nil {
		logger.Warn("UniDoc license key rejected, DOCX transcript export is disabled", zap.Error(err))
		return false
	}
	return true
}
