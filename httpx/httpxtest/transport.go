package httpxtest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// Result is one scripted transport outcome.
type Result struct {
	StatusCode int
	Body       string
	Err        error
}

// MockTransport is a mock implementation of httpx.Transport for testing.
// It allows configuring response behavior and capturing request history.
type MockTransport struct {
	mu sync.Mutex

	// Results are returned in order, one per call. Once exhausted the last
	// one repeats. Takes precedence over Response and Err.
	Results []Result

	// Response to return (if Err is nil)
	Response *http.Response

	// Err to return (takes precedence over Response)
	Err error

	// Func is a custom function to handle requests
	// If set, takes precedence over everything else
	Func func(ctx context.Context, req *http.Request) (*http.Response, error)

	// Requests captures all requests made to this transport
	Requests []*http.Request

	// Bodies captures the request body sent with every call.
	Bodies []string

	// CallCount tracks the number of times Do() was called
	CallCount int
}

// Sequence returns a transport that answers with the given status codes in
// order.
func Sequence(codes ...int) *MockTransport {
	m := &MockTransport{}
	for _, code := range codes {
		m.Results = append(m.Results, Result{StatusCode: code})
	}
	return m
}

// Do implements the Transport interface.
func (m *MockTransport) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.CallCount
	m.CallCount++
	m.Requests = append(m.Requests, req)
	m.Bodies = append(m.Bodies, readBody(req))

	if m.Func != nil {
		return m.Func(ctx, req)
	}

	if len(m.Results) > 0 {
		if idx >= len(m.Results) {
			idx = len(m.Results) - 1
		}
		r := m.Results[idx]
		if r.Err != nil {
			return nil, r.Err
		}
		return NewResponse(req, r.StatusCode, r.Body), nil
	}

	if m.Err != nil {
		return nil, m.Err
	}

	return m.Response, nil
}

// Reset clears the request history and call count.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = nil
	m.Bodies = nil
	m.CallCount = 0
}

// Calls returns the number of times Do was called.
func (m *MockTransport) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// LastRequest returns the most recent request, or nil if no requests have been made.
func (m *MockTransport) LastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Requests) == 0 {
		return nil
	}

	return m.Requests[len(m.Requests)-1]
}

// NewResponse builds a response for req with the given status and body.
func NewResponse(req *http.Request, code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Request:    req,
	}
}

// readBody consumes the request body and puts an identical one back.
func readBody(req *http.Request) string {
	if req.Body == nil || req.Body == http.NoBody {
		return ""
	}
	b, _ := io.ReadAll(req.Body)
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(b))
	return string(b)
}
