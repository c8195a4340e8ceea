package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
)

type Connector struct {
	baseURL    string
	httpClient *http.Client
	retryOpts  []retry.Option
	logger     *zap.Logger
}

type ConnectorConfig struct {
	BaseURL string
	Logger  *zap.Logger
	// RetryOptions apply to every request. Only network errors and 5xx
	// responses are retried. Empty means a single attempt.
	RetryOptions []retry.Option
}

func NewConnector(config *ConnectorConfig, options ...HttpOpts) *Connector {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		baseURL:    config.BaseURL,
		httpClient: newClient(options...),
		retryOpts:  config.RetryOptions,
		logger:     logger,
	}
}

type RequestOpt func(*requestConfig)

type requestConfig struct {
	headers     map[string]string
	overrideURL string
}

func WithHeader(key, value string) RequestOpt {
	return func(c *requestConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}

func WithURL(url string) RequestOpt {
	return func(c *requestConfig) {
		c.overrideURL = url
	}
}

// payload is a fully materialized request body so it can be replayed on retry.
type payload struct {
	data        []byte
	contentType string
	logBody     bool
}

// DoRequest sends reqBody as JSON and decodes a JSON response into respBody.
func (c *Connector) DoRequest(ctx context.Context, method, endpoint string, reqBody, respBody any, opts ...RequestOpt) error {
	var body *payload
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = &payload{data: jsonData, contentType: "application/json", logBody: true}
	}

	return c.do(ctx, method, endpoint, body, respBody, opts...)
}

// DoMultipartRequest builds a multipart/form-data body with prepareBody.
func (c *Connector) DoMultipartRequest(ctx context.Context, method, endpoint string, prepareBody func(*multipart.Writer) error, respBody any, opts ...RequestOpt) error {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if err := prepareBody(writer); err != nil {
		return fmt.Errorf("prepare multipart body: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	body := &payload{data: buf.Bytes(), contentType: writer.FormDataContentType()}
	return c.do(ctx, method, endpoint, body, respBody, opts...)
}

// DoRawRequest sends data as-is with the given content type.
func (c *Connector) DoRawRequest(ctx context.Context, method, endpoint string, data []byte, contentType string, respBody any, opts ...RequestOpt) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	body := &payload{data: data, contentType: contentType}
	return c.do(ctx, method, endpoint, body, respBody, opts...)
}

func (c *Connector) do(ctx context.Context, method, endpoint string, body *payload, respBody any, opts ...RequestOpt) error {
	cfg := &requestConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	url := c.baseURL + endpoint
	if cfg.overrideURL != "" {
		url = cfg.overrideURL
	}

	if body != nil && body.logBody {
		// Attach payload to context for logging transport
		ctx = context.WithValue(ctx, payloadContextKey{}, body.data)
	}

	attempt := func() error {
		return c.send(ctx, method, url, body, cfg.headers, respBody)
	}

	if len(c.retryOpts) == 0 {
		return attempt()
	}

	retryOpts := append([]retry.Option{}, c.retryOpts...)
	retryOpts = append(retryOpts,
		retry.Context(ctx),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Retrying outbound request",
				zap.String("method", method),
				zap.String("url", url),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)

	return retry.Do(attempt, retryOpts...)
}

func (c *Connector) send(ctx context.Context, method, url string, body *payload, headers map[string]string, respBody any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body.data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}

	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	req.Header.Set("Accept", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}

	if respBody != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// IsRetryable reports whether err is a transient failure: a network error
// or a 5xx response. Cancelled contexts are never retried.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}

	return false
}

// HTTPError represents an HTTP error response
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError represents a network-level error (connection, timeout, etc.)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
