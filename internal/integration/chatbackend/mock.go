package chatbackend

import (
	"context"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/entity"
)

// MockConnector answers from a keyword table instead of calling the backend.
type MockConnector struct {
	replies *entity.CannedReplies
	logger  *zap.Logger
}

func NewMockConnector(replies *entity.CannedReplies, logger *zap.Logger) *MockConnector {
	return &MockConnector{
		replies: replies,
		logger:  logger,
	}
}

// Reply returns the first canned reply whose keyword occurs in the message.
// Attached files are acknowledged before the answer.
func (m *MockConnector) Reply(ctx context.Context, req *entity.ReplyRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctxzap.Info(ctx, "[MOCK] generating chat reply", zap.Int("file_count", len(req.Files)))

	reply := m.match(req.Message)

	if len(req.Files) > 0 {
		names := make([]string, 0, len(req.Files))
		words := 0
		for _, f := range req.Files {
			names = append(names, f.Filename)
			words += len(strings.Fields(f.Text))
		}
		ack := fmt.Sprintf("I read %d attached document(s) (%s, about %d words).", len(req.Files), strings.Join(names, ", "), words)
		if strings.TrimSpace(req.Message) == "" {
			return ack + " What would you like to know about them?", nil
		}
		reply = ack + " " + reply
	}

	return reply, nil
}

func (m *MockConnector) match(message string) string {
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})

	for _, candidate := range m.replies.Replies {
		for _, kw := range candidate.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					return candidate.Reply
				}
				continue
			}
			for _, w := range words {
				if w == kw {
					return candidate.Reply
				}
			}
		}
	}

	return m.replies.Fallback
}

func (m *MockConnector) UploadFile(ctx context.Context, filename string, data []byte) error {
	ctxzap.Info(ctx, "[MOCK] attachment mirrored", zap.String("filename", filename), zap.Int("size", len(data)))
	return nil
}
