package asr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/integration/common"
	pkghttp "github.com/finestate/hub-backend/pkg/http"
)

type Connector struct {
	config    config.ASRConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.ASRConnectorConfig, logger *zap.Logger) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, cfg.Retry, logger),
		config:    cfg,
		logger:    logger,
	}
}

// TranscribeBytes uploads a recorded clip and returns the recognized text.
func (c *Connector) TranscribeBytes(ctx context.Context, audioData []byte, filename string) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data provided")
	}

	hash := sha256.Sum256(audioData)
	checksum := hex.EncodeToString(hash[:])

	ctxzap.Info(ctx, "transcribing audio via ASR service",
		zap.String("filename", filename),
		zap.String("checksum", checksum),
		zap.Int("size", len(audioData)),
	)

	prepareBody := func(writer *multipart.Writer) error {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return fmt.Errorf("create form file: %w", err)
		}

		if _, err := part.Write(audioData); err != nil {
			return fmt.Errorf("write file content: %w", err)
		}

		if err := writer.WriteField("checksum", checksum); err != nil {
			return fmt.Errorf("write checksum field: %w", err)
		}

		return nil
	}

	var resp entity.ASRResponse
	err := c.connector.DoMultipartRequest(ctx, http.MethodPost, c.config.TranscribeEndpoint, prepareBody, &resp)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	ctxzap.Info(ctx, "audio transcribed successfully", zap.Int("transcription_length", len(text)))

	return text, nil
}
