package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

var _ulidGenerator = func() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// NewULID returns a lexicographically sortable id. Ids generated within the
// same millisecond still sort in generation order.
func NewULID() string {
	return _ulidGenerator()
}

// UseULID replaces the generator, typically with a deterministic one in tests.
// Passing nil is ignored.
func UseULID(fn func() string) {
	if fn != nil {
		_ulidGenerator = fn
	}
}
