package common

import (
	"go.uber.org/zap"

	"github.com/finestate/hub-backend/internal/config"
	pkgRetry "github.com/finestate/hub-backend/internal/pkg/retry"
	pkgHTTP "github.com/finestate/hub-backend/pkg/http"
)

// NewBaseConnector builds an HTTP connector with the shared timeouts,
// bearer auth, debug request logging and the given retry policy.
func NewBaseConnector(cfg config.HTTPClientConfig, retryCfg pkgRetry.RetryConfig, logger *zap.Logger) *pkgHTTP.Connector {
	connCfg := &pkgHTTP.ConnectorConfig{
		Logger:       logger,
		BaseURL:      cfg.Url,
		RetryOptions: retryCfg.ToRetryOptions(),
	}

	return pkgHTTP.NewConnector(
		connCfg,
		pkgHTTP.WithRequestTimeout(cfg.RequestTimeout),
		pkgHTTP.WithConnClientTimeout(cfg.ConnTimeout),
		pkgHTTP.WithClientKeepAlive(cfg.KeepAlive),
		pkgHTTP.WithIdleConnTimeout(cfg.IdleConnTimeout),
		pkgHTTP.WithResponseHeaderTimeout(cfg.ResponseHeaderTimeout),
		pkgHTTP.WithRequestLogging(),
		pkgHTTP.WithAuthToken(cfg.Token),
	)
}
