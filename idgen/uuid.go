// Package idgen generates request and session identifiers. Both generators
// can be swapped for deterministic ones in tests.
package idgen

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

var _uuidGenerator = func() string {
	return uuid.New().String()
}

// NewUUID returns a random (version 4) UUID.
func NewUUID() string {
	return _uuidGenerator()
}

// UseUUID replaces the generator. Passing nil is ignored.
func UseUUID(fn func() string) {
	if fn != nil {
		_uuidGenerator = fn
	}
}

// Sequence returns a generator yielding prefix-1, prefix-2 and so on.
// It is safe for concurrent use.
func Sequence(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
