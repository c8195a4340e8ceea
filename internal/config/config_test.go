package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMocks(t *testing.T) {
	t.Setenv("ENABLE_MOCKS", "true")

	cfg, err := Load("test-" + t.Name())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "public", cfg.UploadCfg.PublicDir)
	assert.Equal(t, "/uploads", cfg.UploadCfg.PublicPrefix)
	assert.Equal(t, 20*time.Millisecond, cfg.ChatCfg.StreamInterval)
	assert.Equal(t, "/send_message", cfg.ChatBackendCfg.SendMessageEndpoint)
	assert.Equal(t, uint(3), cfg.ChatBackendCfg.Retry.Attempts)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "test-"+t.Name(), cfg.Environment)
}

func TestLoadRequiresBackendURLWithoutMocks(t *testing.T) {
	t.Setenv("ENABLE_MOCKS", "false")
	t.Setenv("CHAT_BACKEND_SERVICE_URL", "")

	_, err := Load("test-" + t.Name())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_BACKEND_SERVICE_URL")
}

func TestValidateConfigCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		ChatProvider: "carrier-pigeon",
		UploadCfg:    UploadConfig{MaxUploadSize: 0, MaxPDFPages: 1, PublicPrefix: "uploads"},
		ChatCfg:      ChatConfig{StreamInterval: 2 * time.Second, SpeechDebounce: time.Second, SessionTTL: time.Minute},
	}

	err := validateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UPLOAD_MAX_SIZE")
	assert.Contains(t, err.Error(), "UPLOAD_PUBLIC_PREFIX")
	assert.Contains(t, err.Error(), "CHAT_STREAM_INTERVAL")
	assert.Contains(t, err.Error(), "CHAT_PROVIDER")
}

func TestLoadRepliesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
replies:
  - keywords: [cap rate]
    reply: Cap rates are stable.
`), 0o644))

	replies, err := LoadReplies(path)
	require.NoError(t, err)
	require.Len(t, replies.Replies, 1)
	assert.Equal(t, []string{"cap rate"}, replies.Replies[0].Keywords)
	assert.Equal(t, defaultReplies.Fallback, replies.Fallback)
}

func TestLoadRepliesMissingFileFallsBack(t *testing.T) {
	replies, err := LoadReplies(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, len(defaultReplies.Replies), len(replies.Replies))
}

func TestLoadRepliesRejectsEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "replies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("replies: []\n"), 0o644))

	_, err := LoadReplies(path)
	assert.Error(t, err)
}

func TestGetEnvFile(t *testing.T) {
	assert.Equal(t, ".env.prod", getEnvFile("production"))
	assert.Equal(t, ".env.local", getEnvFile("dev"))
	assert.Equal(t, ".env.staging", getEnvFile("staging"))
}
