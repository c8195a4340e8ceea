package chatbackend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/integration/common"
	pkghttp "github.com/finestate/hub-backend/pkg/http"
)

// Connector talks to the external chat backend. It is an opaque
// request/response client, the backend decides what a reply contains.
type Connector struct {
	config    config.ChatBackendConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.ChatBackendConfig, logger *zap.Logger) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, cfg.Retry, logger),
		logger:    logger,
	}
}

// Reply sends the message with the attached file texts. The answer is read
// from "reply", falling back to "text".
func (c *Connector) Reply(ctx context.Context, req *entity.ReplyRequest) (string, error) {
	body := entity.BackendSendMessageRequest{
		Message: req.Message,
		Files:   req.Files,
	}
	if body.Files == nil {
		body.Files = []entity.FileSelection{}
	}

	ctxzap.Info(ctx, "sending message to chat backend",
		zap.Int("message_length", len(req.Message)),
		zap.Int("file_count", len(req.Files)),
	)

	var resp entity.BackendSendMessageResponse
	if err := c.connector.DoRequest(ctx, http.MethodPost, c.config.SendMessageEndpoint, body, &resp); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	reply := resp.Reply
	if strings.TrimSpace(reply) == "" {
		reply = resp.Text
	}
	if strings.TrimSpace(reply) == "" {
		return "", entity.ErrEmptyReply
	}

	ctxzap.Info(ctx, "chat backend replied", zap.Int("reply_length", len(reply)))
	return reply, nil
}

// UploadFile forwards raw attachment bytes to the backend's upload endpoint.
func (c *Connector) UploadFile(ctx context.Context, filename string, data []byte) error {
	ctxzap.Info(ctx, "mirroring attachment to chat backend",
		zap.String("filename", filename),
		zap.Int("size", len(data)),
	)

	var resp entity.BackendUploadResponse
	err := c.connector.DoRawRequest(ctx, http.MethodPost, c.config.UploadEndpoint, data, "application/pdf", &resp,
		pkghttp.WithHeader("X-Filename", url.PathEscape(filename)),
	)
	if err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	return nil
}
