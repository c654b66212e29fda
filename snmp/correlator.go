package snmp

import (
	"net"
	"sync"
	"time"
)

// CorrelatedResult is delivered to a caller handle when its request
// transitions out of "registered" (§4.3).
type CorrelatedResult struct {
	PDU *DecodedPDU
	Err error
}

// inFlightEntry is the value held per request ID while it is in flight
// (§3 InFlight entry). The state machine's three terminal transitions
// (completed/timed_out/cancelled) are mutually exclusive: whichever path
// first deletes the entry from the table under Correlator.mu is the only
// one that fires.
type inFlightEntry struct {
	callback    func(CorrelatedResult)
	timer       *time.Timer
	op          Op
	submittedAt time.Time
}

// Correlator owns the in-flight request table and routes inbound
// datagrams back to their originating callers (C3, §4.3). It is the only
// long-lived mutable shared structure in the engine (§5); all access to
// the table is serialized through mu so the receive path and timer
// goroutines never race on an entry's terminal transition.
type Correlator struct {
	codec   PDUCodec
	trace   *Trace
	metrics *metricsCollector

	mu       sync.Mutex
	inFlight map[int32]*inFlightEntry
}

// NewCorrelator builds a Correlator bound to codec for decoding inbound
// datagrams.
func NewCorrelator(codec PDUCodec, trace *Trace, metrics *metricsCollector) *Correlator {
	return &Correlator{
		codec:    codec,
		trace:    trace,
		metrics:  metrics,
		inFlight: make(map[int32]*inFlightEntry),
	}
}

// Register inserts an in-flight entry and arms its timeout. callback is
// invoked exactly once, either with a decoded response, a timeout error,
// or not at all if Unregister wins the race first. Returns
// ErrDuplicateRequestID if requestID is already registered (§4.3).
func (c *Correlator) Register(requestID int32, op Op, timeout time.Duration, callback func(CorrelatedResult)) error {
	c.mu.Lock()
	if _, exists := c.inFlight[requestID]; exists {
		c.mu.Unlock()
		return wrapKind(ErrDuplicateRequestID, "request id %d already registered", requestID)
	}

	entry := &inFlightEntry{callback: callback, op: op, submittedAt: time.Now()}
	entry.timer = time.AfterFunc(timeout, func() { c.fireTimeout(requestID) })
	c.inFlight[requestID] = entry
	c.mu.Unlock()

	c.metrics.recordRegistered()
	c.trace.RequestRegistered(requestID, op)
	return nil
}

// Unregister performs a caller-initiated cancel. Idempotent: cancelling an
// already-terminal or unknown request ID is a no-op. Any response that
// arrives afterwards is treated as unknown (§5 Cancellation, §8).
func (c *Correlator) Unregister(requestID int32) {
	c.mu.Lock()
	entry, ok := c.inFlight[requestID]
	if ok {
		delete(c.inFlight, requestID)
	}
	c.mu.Unlock()
	if ok {
		entry.timer.Stop()
	}
}

// HandleDatagram decodes an inbound datagram and delivers it to the
// matching in-flight caller, or discards it as unknown. It is the
// Transport's DatagramHandler (§4.1, §4.3).
func (c *Correlator) HandleDatagram(_ *net.UDPAddr, data []byte) {
	decoded, err := c.codec.Decode(data)
	if err != nil {
		c.metrics.recordDecodeFailure()
		return
	}

	c.mu.Lock()
	entry, ok := c.inFlight[decoded.RequestID]
	if ok {
		delete(c.inFlight, decoded.RequestID)
	}
	c.mu.Unlock()

	if !ok {
		c.metrics.recordUnknown()
		c.trace.UnknownResponse(decoded.RequestID)
		return
	}

	// entry was already removed from the table under the lock above, so
	// even if the timer fired concurrently, fireTimeout's own lookup will
	// miss and it will not double-deliver.
	entry.timer.Stop()

	elapsed := time.Since(entry.submittedAt)
	c.metrics.recordCompleted(elapsed.Nanoseconds())
	c.trace.ResponseMatched(decoded.RequestID, elapsed)
	entry.callback(CorrelatedResult{PDU: decoded})
}

func (c *Correlator) fireTimeout(requestID int32) {
	c.mu.Lock()
	entry, ok := c.inFlight[requestID]
	if ok {
		delete(c.inFlight, requestID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	c.metrics.recordTimeout()
	c.trace.RequestTimedOut(requestID)
	entry.callback(CorrelatedResult{Err: wrapKind(ErrTimeout, "request %d timed out", requestID)})
}

// InFlightCount reports the current table size; used by tests asserting
// the §8 uniqueness invariant and by diagnostics.
func (c *Correlator) InFlightCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inFlight)
}
