package snmp

import (
	"context"
	"time"
)

// Session drives a single SNMP request end-to-end through the shared
// Transport/Correlator/Allocator (C4, §4.4). It corresponds to the
// teacher's per-connection sessionImpl, generalized to the multiplexed,
// shared-socket architecture mandated by §9 (MultiV2).
type Session struct {
	transport  *Transport
	correlator *Correlator
	alloc      *allocator
	codec      PDUCodec
	oidutil    OIDUtil
	mibDB      MIBRegistry
	trace      *Trace
}

func newSession(t *Transport, c *Correlator, a *allocator, cfg *config) *Session {
	return &Session{transport: t, correlator: c, alloc: a, codec: cfg.codec, oidutil: cfg.oidutil, mibDB: cfg.mibDB, trace: cfg.trace}
}

// Get issues a GET for the given OID tokens (§4.4 procedure, steps 1-6).
func (s *Session) Get(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	return s.execute(ctx, target, PDUGet, OpGet, oids, o)
}

// GetNext issues a GETNEXT for v1 targets, or a GETBULK with
// max_repetitions=1 for v2c targets, per §4.4's version-specific GetNext
// behavior.
func (s *Session) GetNext(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	if target.Version == V1 {
		return s.execute(ctx, target, PDUGetNext, OpGetNext, oids, o)
	}
	o.MaxRepetitions = 1
	o.NonRepeaters = 0
	return s.execute(ctx, target, PDUGetBulk, OpGetNext, oids, o)
}

// GetBulk issues a GETBULK; it requires v2c (§4.4 step 3).
func (s *Session) GetBulk(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	if target.Version != V2c {
		return nil, wrapKind(ErrGetBulkRequiresV2c, "get_bulk on target %s:%d", target.Host, target.Port)
	}
	return s.execute(ctx, target, PDUGetBulk, OpGetBulk, oids, o)
}

// Set issues an SNMP SET.
func (s *Session) Set(ctx context.Context, target Target, oids []string, values []TypedValue, o Opts) (*PDU, error) {
	return s.executeSet(ctx, target, oids, values, o)
}

// PDU is the caller-facing decoded response: a 3-tuple varbind list plus
// the request's error status/index (§4.4 step 6, §6 result contract).
type PDU struct {
	RequestID   int32
	ErrorStatus int
	ErrorIndex  int
	Varbinds    []Varbind
}

// execute implements the §4.4 procedure: resolve target, normalize/
// resolve OIDs, allocate a request ID, send, await correlation, retry on
// timeout up to o.Retries times, each retry with a fresh request ID.
func (s *Session) execute(ctx context.Context, target Target, pduType PDUType, op Op, tokens []string, o Opts) (*PDU, error) {
	resolvedOIDs, err := s.resolveOIDs(tokens)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		pdu, err := s.sendOnce(ctx, target, pduType, resolvedOIDs, nil, o)
		if err == nil {
			return pdu, nil
		}
		if !Is(err, ErrTimeout) || attempt >= o.Retries {
			return nil, err
		}
	}
}

func (s *Session) executeSet(ctx context.Context, target Target, tokens []string, values []TypedValue, o Opts) (*PDU, error) {
	resolvedOIDs, err := s.resolveOIDs(tokens)
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		pdu, err := s.sendOnce(ctx, target, PDUSet, resolvedOIDs, values, o)
		if err == nil {
			return pdu, nil
		}
		if !Is(err, ErrTimeout) || attempt >= o.Retries {
			return nil, err
		}
	}
}

func (s *Session) resolveOIDs(tokens []string) ([]OID, error) {
	out := make([]OID, len(tokens))
	for i, tok := range tokens {
		o, err := resolveOIDToken(s.mibDB, s.oidutil, tok)
		if err != nil {
			return nil, err
		}
		out[i] = o
	}
	return out, nil
}

// sendOnce allocates a fresh request ID, builds and sends one PDU, and
// blocks until the Correlator delivers a result or the context/timeout
// expires.
func (s *Session) sendOnce(ctx context.Context, target Target, pduType PDUType, oids []OID, setValues []TypedValue, o Opts) (*PDU, error) {
	pduCtx, cancel := withTimeout(ctx, o.Timeout)
	defer cancel()

	requestID := s.alloc.Next()

	data, err := s.codec.Encode(target, requestID, pduType, o.NonRepeaters, o.MaxRepetitions, oids, setValues)
	if err != nil {
		return nil, wrapErr(ErrInvalidData, err, "encode pdu")
	}

	resultCh := make(chan CorrelatedResult, 1)
	op := opForPDUType(pduType)
	if err := s.correlator.Register(requestID, op, o.Timeout, func(r CorrelatedResult) {
		resultCh <- r
	}); err != nil {
		return nil, err
	}

	if err := s.transport.Send(target.Host, target.Port, data); err != nil {
		s.correlator.Unregister(requestID)
		return nil, err
	}

	select {
	case r := <-resultCh:
		if r.Err != nil {
			return nil, r.Err
		}
		return s.toPDU(r.PDU)
	case <-pduCtx.Done():
		s.correlator.Unregister(requestID)
		if ctx.Err() == nil {
			// The per-PDU deadline ended the wait before the Correlator's own
			// timer delivered; report it as the same retryable timeout.
			return nil, wrapKind(ErrTimeout, "request %d timed out", requestID)
		}
		return nil, ctx.Err()
	}
}

func (s *Session) toPDU(decoded *DecodedPDU) (*PDU, error) {
	for _, vb := range decoded.Varbinds {
		if vb.TypedValue.Type == 0 && vb.TypedValue.Value == nil {
			return nil, wrapKind(ErrTypeInformationLost, "varbind %s missing type", vb.OID.String())
		}
	}
	return &PDU{
		RequestID:   decoded.RequestID,
		ErrorStatus: decoded.ErrorStatus,
		ErrorIndex:  decoded.ErrorIndex,
		Varbinds:    decoded.Varbinds,
	}, nil
}

func opForPDUType(t PDUType) Op {
	switch t {
	case PDUGetNext:
		return OpGetNext
	case PDUGetBulk:
		return OpGetBulk
	case PDUSet:
		return OpSet
	default:
		return OpGet
	}
}

// withTimeout wraps ctx with o's resolved per-PDU timeout; sendOnce uses it
// to bound its wait for the Correlator's delivery.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
