package snmp

import (
	"sync/atomic"
)

// maxRequestID bounds the allocator's range to §4.2's 1..1_000_000.
const maxRequestID = 1_000_000

// allocator produces unique, contention-free 32-bit request IDs (C2,
// §4.2). The counter is a single atomic value shared across every request
// issued through an Engine; it never returns 0 and wraps from maxRequestID
// back to 1 to avoid overflow on long-running processes.
type allocator struct {
	counter uint64
}

func newAllocator() *allocator {
	return &allocator{}
}

// Next returns the next request ID in 1..maxRequestID. It is safe for
// concurrent use from arbitrarily many goroutines without locking.
func (a *allocator) Next() int32 {
	v := atomic.AddUint64(&a.counter, 1)
	id := int32(v % maxRequestID)
	if id == 0 {
		id = maxRequestID
	}
	return id
}
