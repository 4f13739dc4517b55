package payment

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/oklog/ulid/v2"
)

const (
	txIDPrefix      = "TXN"
	seenFilterFPR   = 0.0001
	defaultSeenSize = 1_000_000
)

// TransactionIDs issues time-ordered transaction ids. Ids are ULIDs with
// monotonic entropy and are never repeated by one process; a bloom filter of
// issued ids skips any candidate that may have been handed out already. The
// order store's unique index is the system-wide authority.
type TransactionIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	seen    *bloom.BloomFilter
	now     func() time.Time
}

// NewTransactionIDs creates a generator sized for capacity ids.
func NewTransactionIDs(capacity uint) *TransactionIDs {
	if capacity == 0 {
		capacity = defaultSeenSize
	}
	return &TransactionIDs{
		entropy: ulid.Monotonic(rand.Reader, 0),
		seen:    bloom.NewWithEstimates(capacity, seenFilterFPR),
		now:     time.Now,
	}
}

// Next returns a fresh transaction id such as TXN01J9Z3K4W5X6Y7Z8A9B0C1D2E3.
func (g *TransactionIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
		if err != nil {
			// Monotonic entropy overflowed within one millisecond; wait for
			// the next one.
			time.Sleep(time.Millisecond)
			continue
		}
		candidate := txIDPrefix + id.String()
		if !g.seen.TestAndAddString(candidate) {
			return candidate
		}
	}
}
