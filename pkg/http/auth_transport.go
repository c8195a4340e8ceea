package http

import "net/http"

// headerTransport sets a fixed header on every outgoing request unless the
// caller already set it.
type headerTransport struct {
	key       string
	value     string
	transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.value == "" || req.Header.Get(t.key) != "" {
		return t.transport.RoundTrip(req)
	}

	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.key, t.value)

	return t.transport.RoundTrip(reqCopy)
}

func WithStaticHeader(key, value string) HttpOpts {
	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &headerTransport{
			key:       key,
			value:     value,
			transport: rt,
		}
	})
}

// WithAuthToken sends "Authorization: Bearer <token>". An empty token is a no-op.
func WithAuthToken(token string) HttpOpts {
	if token == "" {
		return WithStaticHeader("Authorization", "")
	}
	return WithStaticHeader("Authorization", "Bearer "+token)
}
