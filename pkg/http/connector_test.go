package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestConnector(url string, retryOpts ...retry.Option) *Connector {
	return NewConnector(&ConnectorConfig{
		BaseURL:      url,
		Logger:       zap.NewNop(),
		RetryOptions: retryOpts,
	}, WithRequestTimeout(2*time.Second), WithRequestLogging(), WithAuthToken("secret"))
}

func TestDoRequestSendsJSONAndDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/echo", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "v", r.Header.Get("X-Custom"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": body["msg"]})
	}))
	defer srv.Close()

	var resp map[string]string
	err := newTestConnector(srv.URL).DoRequest(context.Background(), http.MethodPost, "/echo",
		map[string]string{"msg": "hi"}, &resp, WithHeader("X-Custom", "v"))
	require.NoError(t, err)
	assert.Equal(t, "hi", resp["echo"])
}

func TestDoRawRequestSendsBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-raw", string(data))
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		assert.Equal(t, "a%20b.pdf", r.Header.Get("X-Filename"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestConnector(srv.URL).DoRawRequest(context.Background(), http.MethodPost, "/upload",
		[]byte("%PDF-raw"), "application/pdf", nil, WithHeader("X-Filename", "a%20b.pdf"))
	assert.NoError(t, err)
}

func TestDoMultipartRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "clip.wav", header.Filename)
		assert.Equal(t, "RIFF", string(data))
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer srv.Close()

	var resp map[string]string
	err := newTestConnector(srv.URL).DoMultipartRequest(context.Background(), http.MethodPost, "/t",
		func(w *multipart.Writer) error {
			part, err := w.CreateFormFile("file", "clip.wav")
			if err != nil {
				return err
			}
			_, err = part.Write([]byte("RIFF"))
			return err
		}, &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["text"])
}

func TestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conn := newTestConnector(srv.URL, retry.Attempts(3), retry.Delay(time.Millisecond), retry.LastErrorOnly(true))
	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	conn := newTestConnector(srv.URL, retry.Attempts(3), retry.Delay(time.Millisecond), retry.LastErrorOnly(true))
	err := conn.DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNetworkErrorIsTyped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := newTestConnector(url).DoRequest(context.Background(), http.MethodGet, "/", nil, nil)

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.True(t, IsRetryable(err))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&HTTPError{StatusCode: 503}))
	assert.False(t, IsRetryable(&HTTPError{StatusCode: 404}))
	assert.False(t, IsRetryable(&NetworkError{Err: context.Canceled}))
	assert.False(t, IsRetryable(errors.New("decode response")))
}
