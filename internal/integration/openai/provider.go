package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
)

// maxDocumentChars bounds how much extracted text of a single attachment is
// placed into the prompt.
const maxDocumentChars = 20000

// Provider answers chat messages with an OpenAI compatible completion API.
type Provider struct {
	client *goopenai.Client
	config config.OpenAIConfig
	logger *zap.Logger
}

func NewProvider(cfg config.OpenAIConfig, logger *zap.Logger) *Provider {
	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: goopenai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

func (p *Provider) Reply(ctx context.Context, req *entity.ReplyRequest) (string, error) {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	messages := p.buildMessages(req)

	ctxzap.Info(ctx, "requesting chat completion",
		zap.String("model", p.config.Model),
		zap.Int("message_count", len(messages)),
		zap.Int("file_count", len(req.Files)),
	)

	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    p.config.Model,
		Messages: messages,
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("chat completion rejected (HTTP %d): %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", entity.ErrEmptyReply
	}

	reply := resp.Choices[0].Message.Content
	ctxzap.Info(ctx, "chat completion received",
		zap.Int("reply_length", len(reply)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return reply, nil
}

func (p *Provider) buildMessages(req *entity.ReplyRequest) []goopenai.ChatCompletionMessage {
	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.History)+3)

	if p.config.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: p.config.SystemPrompt,
		})
	}

	if len(req.Files) > 0 {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: documentsPrompt(req.Files),
		})
	}

	for _, msg := range req.History {
		role := goopenai.ChatMessageRoleUser
		if msg.Sender == entity.SenderBot {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: msg.Text})
	}

	// History already ends with the outgoing message when the session supplies it.
	if len(req.History) == 0 && req.Message != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleUser,
			Content: req.Message,
		})
	}

	return messages
}

func documentsPrompt(files []entity.FileSelection) string {
	var b strings.Builder
	b.WriteString("The user attached the following documents.")
	for _, f := range files {
		text := f.Text
		if len(text) > maxDocumentChars {
			text = text[:maxDocumentChars] + "\n[truncated]"
		}
		if strings.TrimSpace(text) == "" {
			text = "(no extractable text)"
		}
		fmt.Fprintf(&b, "\n\n--- %s ---\n%s", f.Filename, text)
	}
	return b.String()
}
