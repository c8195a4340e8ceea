package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	"github.com/finestate/hub-backend/internal/entity"
	"github.com/finestate/hub-backend/internal/integration/common"
	pkghttp "github.com/finestate/hub-backend/pkg/http"
)

// Connector is the console's client for the hub server's upload API.
type Connector struct {
	config    config.HubConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(cfg config.HubConnectorConfig, logger *zap.Logger) *Connector {
	return &Connector{
		config:    cfg,
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, cfg.Retry, logger),
		logger:    logger,
	}
}

// Upload sends the raw file bytes with the name in X-Filename and returns the
// server's result. A rejection from the server is reported as an error that
// carries the server's message.
func (c *Connector) Upload(ctx context.Context, filename string, data []byte) (*entity.UploadResult, error) {
	ctxzap.Info(ctx, "uploading file to hub",
		zap.String("filename", filename),
		zap.Int("size", len(data)),
	)

	var result entity.UploadResult
	err := c.connector.DoRawRequest(ctx, http.MethodPost, c.config.UploadEndpoint, data, "application/octet-stream", &result,
		pkghttp.WithHeader("X-Filename", url.PathEscape(filename)),
	)
	if err != nil {
		var httpErr *pkghttp.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusRequestEntityTooLarge {
			return nil, fmt.Errorf("upload %s: %w", filename, entity.ErrFileTooLarge)
		}
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	if !result.OK {
		return nil, fmt.Errorf("upload %s: server reported failure", filename)
	}

	ctxzap.Info(ctx, "file uploaded to hub", zap.String("path", result.Path))
	return &result, nil
}
