package asr

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockTranscript is what the mock returns for every clip.
const MockTranscript = "What is the current vacancy rate for office space downtown?"

type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) TranscribeBytes(ctx context.Context, audioData []byte, filename string) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("empty audio data provided")
	}

	ctxzap.Info(ctx, "[MOCK] transcribing audio via ASR",
		zap.String("filename", filename),
		zap.Int("size", len(audioData)),
	)

	return MockTranscript, nil
}
