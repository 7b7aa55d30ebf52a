// Package policy holds the request policies a Client chains in front of its
// transport: tracing, metrics, request ids, timeouts, retries and rate
// limiting. Each one wraps the next and sees every request it forwards.
package policy

import (
	"context"
	"net/http"
)

// Executor sends a request through the rest of the chain.
type Executor func(ctx context.Context, req *http.Request) (*http.Response, error)

// Policy wraps the rest of the chain. It may call next zero times (a
// rejected request), once, or several times (retries). Per-request
// overrides and counters are read from ctx with StateFrom.
type Policy interface {
	Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error)
}

// Func adapts a function to Policy.
type Func func(ctx context.Context, req *http.Request, next Executor) (*http.Response, error)

func (f Func) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	return f(ctx, req, next)
}

// Chain returns an executor running policies outermost first, ending with
// final. Nil policies are skipped.
//
//	exec := Chain([]Policy{timeout, retry, limiter}, transport.Do)
//	resp, err := exec(ctx, req)
func Chain(policies []Policy, final Executor) Executor {
	exec := final
	for i := len(policies) - 1; i >= 0; i-- {
		p := policies[i]
		if p == nil {
			continue
		}
		next := exec
		exec = func(ctx context.Context, req *http.Request) (*http.Response, error) {
			return p.Execute(ctx, req, next)
		}
	}
	return exec
}
