package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewLoanID returns a ULID for the given time. Loan ids sort by borrow time.
func NewLoanID(at time.Time) string { return newULID(at) }

// NewRunID returns a ULID identifying a sweep tick started at the given time.
func NewRunID(at time.Time) string { return newULID(at) }

func newULID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}

// NewID returns a random UUID used for users and items.
func NewID() string {
	return uuid.NewString()
}
