package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/logger"
)

// Client is the main HTTP client that orchestrates transport and policies.
// It is thread-safe and immutable after creation.
type Client struct {
	// transport is the underlying HTTP executor
	transport Transport

	// baseURL is prepended to all request paths
	baseURL string

	log *logger.Logger

	// built-in policies, assembled in a fixed order by NewClient
	tracing   *policy.InstrumentationPolicy
	metrics   *policy.MetricsPolicy
	requestID *policy.RequestIDPolicy
	timeout   *policy.TimeoutPolicy
	retry     *policy.RetryPolicy
	rateLimit *policy.RateLimitPolicy

	// custom policies run between retry and rate limiting
	custom []policy.Policy

	// executor is the final chained executor (policies + transport)
	executor policy.Executor
}

// NewClient creates a new HTTP client with the provided options.
// Policies are chained outermost first: tracing, metrics, request id,
// timeout, retry, custom policies, rate limit, then the transport.
//
// Example:
//
//	client, err := httpx.NewClient(
//	    httpx.WithBaseURL("http://service-b:8080"),
//	    httpx.WithRetry(policy.RetryConfig{MaxDelay: time.Second}),
//	    httpx.WithTimeout(policy.TimeoutConfig{Request: 5 * time.Second}),
//	)
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		transport: NewDefaultTransport(),
		log:       logger.Nop(),
	}

	b := &builder{client: c}
	for _, opt := range opts {
		opt.apply(b)
	}
	if err := b.build(); err != nil {
		return nil, err
	}

	c.executor = policy.Chain(c.policies(), c.transport.Do)
	return c, nil
}

// policies returns the configured policies in chain order.
func (c *Client) policies() []policy.Policy {
	var chain []policy.Policy
	if c.tracing != nil {
		chain = append(chain, c.tracing)
	}
	if c.metrics != nil {
		chain = append(chain, c.metrics)
	}
	if c.requestID != nil {
		chain = append(chain, c.requestID)
	}
	if c.timeout != nil {
		chain = append(chain, c.timeout)
	}
	if c.retry != nil {
		chain = append(chain, c.retry)
	}
	chain = append(chain, c.custom...)
	if c.rateLimit != nil {
		chain = append(chain, c.rateLimit)
	}
	return chain
}

// Do executes an HTTP request with all configured policies applied.
// This is the most flexible method, allowing full control over the request.
// Failures are returned as *RequestError.
func (c *Client) Do(ctx context.Context, req *Request) (*http.Response, error) {
	httpReq, err := req.toHTTPRequest(ctx, c.baseURL)
	if err != nil {
		return nil, &RequestError{
			Err:   err,
			Cause: CauseInvalidRequest,
		}
	}

	state := newState(req.Options)
	resp, err := c.executor(policy.WithState(ctx, state), httpReq)
	if err != nil {
		reqErr := &RequestError{
			Err:      err,
			Request:  httpReq,
			Response: resp,
			Retries:  state.Retries(),
			Cause:    classify(err),
		}
		c.log.WithContext(ctx).Debug("request failed",
			logger.String("method", httpReq.Method),
			logger.String("url", httpReq.URL.String()),
			logger.String("cause", reqErr.Cause),
			logger.Int("retries", reqErr.Retries),
			logger.Err(err),
		)
		return resp, reqErr
	}

	return resp, nil
}

// Get executes a GET request to the specified path.
// Headers are optional and can be nil.
func (c *Client) Get(ctx context.Context, path string, headers ...Headers) (*http.Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		Path:    path,
		Headers: first(headers),
	})
}

// Post executes a POST request to the specified path with the given body.
// Headers are optional and can be nil.
func (c *Client) Post(ctx context.Context, path string, headers Headers, body io.Reader) (*http.Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		Path:    path,
		Headers: headers,
		Body:    body,
	})
}

// Put executes a PUT request to the specified path with the given body.
// Headers are optional and can be nil.
func (c *Client) Put(ctx context.Context, path string, headers Headers, body io.Reader) (*http.Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPut,
		Path:    path,
		Headers: headers,
		Body:    body,
	})
}

// Patch executes a PATCH request to the specified path with the given body.
// Headers are optional and can be nil.
func (c *Client) Patch(ctx context.Context, path string, headers Headers, body io.Reader) (*http.Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodPatch,
		Path:    path,
		Headers: headers,
		Body:    body,
	})
}

// Delete executes a DELETE request to the specified path.
// Headers are optional and can be nil.
func (c *Client) Delete(ctx context.Context, path string, headers ...Headers) (*http.Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodDelete,
		Path:    path,
		Headers: first(headers),
	})
}

// Check issues a GET to path and treats any status >= 400 as a failure.
// The body is drained and closed. It fits poller.Operation once bound to
// a client and path.
func (c *Client) Check(ctx context.Context, path string, opts ...RequestOption) error {
	resp, err := c.Do(ctx, &Request{
		Method:  http.MethodGet,
		Path:    path,
		Options: opts,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return &RequestError{
			Err:      errors.New(http.StatusText(resp.StatusCode)),
			Request:  resp.Request,
			Response: resp,
			Cause:    CauseStatus,
		}
	}
	return nil
}

func first(headers []Headers) Headers {
	if len(headers) > 0 {
		return headers[0]
	}
	return nil
}
