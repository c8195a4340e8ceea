package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/finestate/hub-backend/internal/pkg/retry"
	"github.com/joho/godotenv"
)

const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr         string   `env:"SERVER_ADDR" envDefault:":8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload storage
	UploadCfg UploadConfig `envPrefix:"UPLOAD_"`

	// Chat state machine and HTTP sessions
	ChatCfg ChatConfig `envPrefix:"CHAT_"`

	// Reply sources
	ChatProvider    string             `env:"CHAT_PROVIDER" envDefault:"backend"`
	ChatBackendCfg  ChatBackendConfig  `envPrefix:"CHAT_BACKEND_"`
	OpenAICfg       OpenAIConfig       `envPrefix:"OPENAI_"`
	RepliesFile     string             `env:"REPLIES_FILE" envDefault:"configs/replies.yaml"`
	ASRConnectorCfg ASRConnectorConfig `envPrefix:"ASR_"`
	HubConnectorCfg HubConnectorConfig `envPrefix:"HUB_"`
	SpeechCfg       SpeechConfig       `envPrefix:"SPEECH_"`
	NatsCfg         NatsConfig         `envPrefix:"NATS_"`

	// Metered UniDoc key, DOCX transcripts are disabled without it
	UnidocLicenseAPIKey string `env:"UNIDOC_LICENSE_API_KEY"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Environment (set from flag, not from env var)
	Environment string
}

// UploadConfig describes where uploads are written and how they are served.
type UploadConfig struct {
	PublicDir     string `env:"PUBLIC_DIR" envDefault:"public"`
	Subdir        string `env:"SUBDIR" envDefault:"uploads"`
	PublicPrefix  string `env:"PUBLIC_PREFIX" envDefault:"/uploads"`
	MaxUploadSize int64  `env:"MAX_SIZE" envDefault:"33554432"` // 32 MiB
	MaxPDFPages   int    `env:"MAX_PDF_PAGES" envDefault:"500"`
}

type ChatConfig struct {
	StreamInterval time.Duration `env:"STREAM_INTERVAL" envDefault:"20ms"`
	SpeechDebounce time.Duration `env:"SPEECH_DEBOUNCE" envDefault:"700ms"`
	ReplyTimeout   time.Duration `env:"REPLY_TIMEOUT" envDefault:"60s"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	CleanupPeriod  time.Duration `env:"CLEANUP_PERIOD" envDefault:"5m"`
}

type ChatBackendConfig struct {
	HTTPClientConfig
	SendMessageEndpoint string               `env:"SEND_MESSAGE_ENDPOINT" envDefault:"/send_message"`
	UploadEndpoint      string               `env:"UPLOAD_ENDPOINT" envDefault:"/upload"`
	MirrorAttachments   bool                 `env:"MIRROR_ATTACHMENTS" envDefault:"false"`
	Retry               pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type OpenAIConfig struct {
	APIKey       string        `env:"API_KEY"`
	BaseURL      string        `env:"BASE_URL"`
	Model        string        `env:"MODEL" envDefault:"gpt-4o-mini"`
	SystemPrompt string        `env:"SYSTEM_PROMPT" envDefault:"You are the CBRE Intelligence Hub assistant. Answer questions about commercial real estate concisely."`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

type ASRConnectorConfig struct {
	HTTPClientConfig
	TranscribeEndpoint string               `env:"TRANSCRIBE_ENDPOINT" envDefault:"/transcribe"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// HubConnectorConfig points the console at the hub server's upload API.
type HubConnectorConfig struct {
	HTTPClientConfig
	UploadEndpoint string               `env:"UPLOAD_ENDPOINT" envDefault:"/api/upload"`
	Retry          pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type SpeechConfig struct {
	// Candidate TTS binaries, the first one found on PATH wins.
	Commands []string `env:"COMMANDS" envSeparator:"," envDefault:"espeak-ng,espeak,say"`
	Disabled bool     `env:"DISABLED" envDefault:"false"`
}

type NatsConfig struct {
	URL           string        `env:"URL"`
	Token         string        `env:"TOKEN"`
	Subject       string        `env:"SUBJECT" envDefault:"uploads.stored"`
	MaxReconnects int           `env:"MAX_RECONNECTS" envDefault:"10"`
	ReconnectWait time.Duration `env:"RECONNECT_WAIT" envDefault:"2s"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"30s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"5s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"30s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"30s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads .env.<environment> when present and parses the process environment.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Printf("Warning: could not load %s file: %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errs []string

	if cfg.UploadCfg.MaxUploadSize < 1 {
		errs = append(errs, fmt.Sprintf("UPLOAD_MAX_SIZE must be positive, got %d", cfg.UploadCfg.MaxUploadSize))
	}

	if cfg.UploadCfg.MaxPDFPages < 1 {
		errs = append(errs, fmt.Sprintf("UPLOAD_MAX_PDF_PAGES must be positive, got %d", cfg.UploadCfg.MaxPDFPages))
	}

	if !strings.HasPrefix(cfg.UploadCfg.PublicPrefix, "/") {
		errs = append(errs, fmt.Sprintf("UPLOAD_PUBLIC_PREFIX must start with '/', got %q", cfg.UploadCfg.PublicPrefix))
	}

	if cfg.ChatCfg.StreamInterval <= 0 || cfg.ChatCfg.StreamInterval > time.Second {
		errs = append(errs, fmt.Sprintf("CHAT_STREAM_INTERVAL must be between 1ns and 1s, got %s", cfg.ChatCfg.StreamInterval))
	}

	if cfg.ChatCfg.SpeechDebounce <= 0 {
		errs = append(errs, fmt.Sprintf("CHAT_SPEECH_DEBOUNCE must be positive, got %s", cfg.ChatCfg.SpeechDebounce))
	}

	if cfg.ChatCfg.SessionTTL <= 0 {
		errs = append(errs, fmt.Sprintf("CHAT_SESSION_TTL must be positive, got %s", cfg.ChatCfg.SessionTTL))
	}

	switch cfg.ChatProvider {
	case ProviderBackend:
		if !cfg.EnableMocks && cfg.ChatBackendCfg.Url == "" {
			errs = append(errs, "CHAT_BACKEND_SERVICE_URL is required when CHAT_PROVIDER=backend and mocks are disabled")
		}
	case ProviderOpenAI:
		if !cfg.EnableMocks && cfg.OpenAICfg.APIKey == "" {
			errs = append(errs, "OPENAI_API_KEY is required when CHAT_PROVIDER=openai and mocks are disabled")
		}
	default:
		errs = append(errs, fmt.Sprintf("CHAT_PROVIDER must be %q or %q, got %q", ProviderBackend, ProviderOpenAI, cfg.ChatProvider))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
