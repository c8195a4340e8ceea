package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
)

// Publisher announces stored uploads on NATS.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewPublisher(cfg config.NatsConfig, logger *zap.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("hub-backend"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, subject: cfg.Subject, logger: logger}, nil
}

func (p *Publisher) PublishUploadStored(ctx context.Context, event *entity.UploadStoredEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// Close flushes buffered messages before closing the connection.
func (p *Publisher) Close(ctx context.Context) error {
	timeout := 5 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if err := p.conn.FlushTimeout(timeout); err != nil {
		p.logger.Warn("NATS flush failed", zap.Error(err))
	}
	p.conn.Close()
	return nil
}

// NopPublisher is used when no NATS server is configured.
type NopPublisher struct{}

func (NopPublisher) PublishUploadStored(context.Context, *entity.UploadStoredEvent) error {
	return nil
}

func (NopPublisher) Close(context.Context) error {
	return nil
}
