package policy

import (
	"context"
	"net/http"

	"github.com/LeonPucin/dash-core/idgen"
)

const DefaultRequestIDHeader = "X-Request-ID"

// RequestIDConfig configures the request id header.
type RequestIDConfig struct {
	// Header is the header name. Default: X-Request-ID
	Header string `mapstructure:"header"`

	// Generator creates ids. Default: idgen.NewUUID
	Generator func() string `mapstructure:"-"`
}

// RequestIDPolicy sets a request id header unless the caller already did.
// Placed outside the retry policy, every attempt carries the same id.
type RequestIDPolicy struct {
	config RequestIDConfig
}

func NewRequestIDPolicy(config RequestIDConfig) *RequestIDPolicy {
	if config.Header == "" {
		config.Header = DefaultRequestIDHeader
	}
	if config.Generator == nil {
		config.Generator = idgen.NewUUID
	}
	return &RequestIDPolicy{config: config}
}

// Execute implements the Policy interface.
func (p *RequestIDPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	id := req.Header.Get(p.config.Header)
	if id == "" {
		id = p.config.Generator()
		req.Header.Set(p.config.Header, id)
	}
	StateFrom(ctx).setRequestID(id)
	return next(ctx, req)
}
