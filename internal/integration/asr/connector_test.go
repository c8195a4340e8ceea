package asr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	pkgRetry "github.com/finestate/hub-backend/internal/pkg/retry"
)

func TestTranscribeBytesPostsMultipart(t *testing.T) {
	clip := []byte("RIFF....WAVEfmt ")
	sum := sha256.Sum256(clip)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transcribe", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, clip, data)
		assert.Equal(t, "question.wav", header.Filename)
		assert.Equal(t, hex.EncodeToString(sum[:]), r.FormValue("checksum"))

		_, _ = w.Write([]byte(`{"text":"  show me the dashboard \n"}`))
	}))
	defer srv.Close()

	c := NewConnector(config.ASRConnectorConfig{
		HTTPClientConfig:   config.HTTPClientConfig{Url: srv.URL, RequestTimeout: 2 * time.Second},
		TranscribeEndpoint: "/transcribe",
		Retry:              pkgRetry.RetryConfig{Attempts: 1},
	}, zap.NewNop())

	text, err := c.TranscribeBytes(context.Background(), clip, "question.wav")
	require.NoError(t, err)
	assert.Equal(t, "show me the dashboard", text)
}

func TestTranscribeBytesRejectsEmptyClip(t *testing.T) {
	c := NewConnector(config.ASRConnectorConfig{}, zap.NewNop())
	_, err := c.TranscribeBytes(context.Background(), nil, "empty.wav")
	assert.Error(t, err)

	_, err = NewMockConnector(zap.NewNop()).TranscribeBytes(context.Background(), nil, "empty.wav")
	assert.Error(t, err)
}

func TestMockTranscribes(t *testing.T) {
	text, err := NewMockConnector(zap.NewNop()).TranscribeBytes(context.Background(), []byte{1}, "a.wav")
	require.NoError(t, err)
	assert.Equal(t, MockTranscript, text)
}
