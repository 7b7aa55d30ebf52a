package httpxtest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// TestServerConfig configures the behavior of a test HTTP server.
type TestServerConfig struct {
	// Latency is the fixed delay before responding
	Latency time.Duration

	// FailFirst answers the first FailFirst requests with FailureCode.
	FailFirst int

	// FailureCode is the status used for failed requests. Default: 503
	FailureCode int

	// StatusCodes is a list of status codes to rotate through
	// If empty, defaults to [200]
	StatusCodes []int

	// Handler is a custom handler function
	// If set, overrides all other configuration
	Handler http.HandlerFunc
}

// TestServer is a configurable HTTP test server.
type TestServer struct {
	*httptest.Server

	mu            sync.Mutex
	config        TestServerConfig
	requestCount  int
	statusCodeIdx int
	headers       []http.Header
}

// NewTestServer creates a new test server with the given configuration.
func NewTestServer(config TestServerConfig) *TestServer {
	if len(config.StatusCodes) == 0 {
		config.StatusCodes = []int{http.StatusOK}
	}
	if config.FailureCode == 0 {
		config.FailureCode = http.StatusServiceUnavailable
	}

	ts := &TestServer{
		config: config,
	}

	ts.Server = httptest.NewServer(http.HandlerFunc(ts.handleRequest))

	return ts
}

// handleRequest handles an incoming request according to the configuration.
func (ts *TestServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	ts.mu.Lock()
	ts.requestCount++
	ts.headers = append(ts.headers, r.Header.Clone())
	n := ts.requestCount
	cfg := ts.config
	statusCode := cfg.StatusCodes[ts.statusCodeIdx%len(cfg.StatusCodes)]
	if n > cfg.FailFirst {
		ts.statusCodeIdx++
	}
	ts.mu.Unlock()

	if cfg.Handler != nil {
		cfg.Handler(w, r)
		return
	}

	if cfg.Latency > 0 {
		select {
		case <-time.After(cfg.Latency):
		case <-r.Context().Done():
			return
		}
	}

	if n <= cfg.FailFirst {
		w.WriteHeader(cfg.FailureCode)
		return
	}

	w.WriteHeader(statusCode)
}

// RequestCount returns the total number of requests handled by this server.
func (ts *TestServer) RequestCount() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.requestCount
}

// Headers returns the headers of every request received so far.
func (ts *TestServer) Headers() []http.Header {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]http.Header(nil), ts.headers...)
}

// Reset resets the request count.
func (ts *TestServer) Reset() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.requestCount = 0
	ts.statusCodeIdx = 0
	ts.headers = nil
}

// TestServerOption is a functional option for configuring a test server.
type TestServerOption func(*TestServerConfig)

// WithLatency sets a fixed latency for all responses.
func WithLatency(d time.Duration) TestServerOption {
	return func(c *TestServerConfig) {
		c.Latency = d
	}
}

// WithFailFirst fails the first n requests with code.
func WithFailFirst(n, code int) TestServerOption {
	return func(c *TestServerConfig) {
		c.FailFirst = n
		c.FailureCode = code
	}
}

// WithStatusCodes sets the status codes to rotate through.
func WithStatusCodes(codes ...int) TestServerOption {
	return func(c *TestServerConfig) {
		c.StatusCodes = codes
	}
}

// WithHandler sets a custom handler function.
func WithHandler(handler http.HandlerFunc) TestServerOption {
	return func(c *TestServerConfig) {
		c.Handler = handler
	}
}

// NewTestServerWithOptions creates a test server with functional options.
func NewTestServerWithOptions(opts ...TestServerOption) *TestServer {
	config := TestServerConfig{}
	for _, opt := range opts {
		opt(&config)
	}
	return NewTestServer(config)
}
