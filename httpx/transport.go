package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/logger"
)

// DefaultUserAgent is sent when a request carries no User-Agent header.
const DefaultUserAgent = "dash-core-httpx"

// Transport sends one attempt of a request. How many attempts a request
// gets is decided by the policies in front of it.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a policy.Executor to Transport.
type TransportFunc policy.Executor

func (f TransportFunc) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// DefaultTransport sends attempts through an http.Client and logs each one
// at debug level with the attempt number recorded by the retry policy.
type DefaultTransport struct {
	client    *http.Client
	userAgent string
	log       *logger.Logger
}

// NewDefaultTransport creates a transport tuned for a few long-lived
// targets: a small idle pool per host that outlives typical poll intervals.
func NewDefaultTransport() *DefaultTransport {
	return NewDefaultTransportWithClient(&http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          32,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
	})
}

// NewDefaultTransportWithClient sends attempts through client. A nil client
// means http.DefaultClient.
func NewDefaultTransportWithClient(client *http.Client) *DefaultTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &DefaultTransport{
		client:    client,
		userAgent: DefaultUserAgent,
		log:       logger.Nop(),
	}
}

// with returns a copy using log and, when non-empty, userAgent. Copies keep
// a transport shared between clients free of per-client settings.
func (t *DefaultTransport) with(log *logger.Logger, userAgent string) *DefaultTransport {
	cp := *t
	if log != nil {
		cp.log = log
	}
	if userAgent != "" {
		cp.userAgent = userAgent
	}
	return &cp
}

func (t *DefaultTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(ctx)
		req.Header.Set("User-Agent", t.userAgent)
	} else if req.Context() != ctx {
		req = req.WithContext(ctx)
	}

	start := time.Now()
	resp, err := t.client.Do(req)

	fields := []logger.Field{
		logger.String("method", req.Method),
		logger.String("url", req.URL.Redacted()),
		logger.Int("attempt", policy.StateFrom(ctx).Attempts()),
		logger.Duration("latency", time.Since(start)),
	}
	if err != nil {
		t.log.Debug("attempt failed", append(fields, logger.Err(err))...)
		return nil, err
	}
	t.log.Debug("attempt completed", append(fields, logger.Int("status", resp.StatusCode))...)
	return resp, nil
}
