package snmp

import (
	"context"

	"github.com/google/uuid"
)

// Manager is the engine's single entry point: it owns the shared socket,
// the correlator, the request-ID allocator, and the Session/WalkEngine/
// Tuner/Orchestrator collaborators built on top of them (§4). Callers
// obtain one via NewManager and issue every operation through it.
type Manager struct {
	id  string
	cfg *config

	transport *Transport
	corr      *Correlator
	alloc     *allocator
	session   *Session
	walker    *WalkEngine
	tuner     *Tuner
	orch      *Orchestrator
}

// NewManager builds and starts a Manager: it opens the shared UDP socket,
// wires the Correlator as its datagram handler, and launches the receive
// loop in its own goroutine, mirroring the teacher's factory-builds-a-
// ready-to-use-value pattern.
func NewManager(opts ...Option) (*Manager, error) {
	cfg := buildConfig(opts)

	transport, err := NewTransport(cfg.bindAddr, cfg.bindPort, cfg.recvBuf, cfg.trace)
	if err != nil {
		return nil, err
	}

	corr := NewCorrelator(cfg.codec, cfg.trace, cfg.metrics)
	alloc := newAllocator()
	session := newSession(transport, corr, alloc, cfg)
	tuner := newTuner(session, cfg.trace)
	walker := newWalkEngine(session, tuner, cfg.trace, cfg.enricher, cfg.mibDB)
	orch := newOrchestrator(session, walker, cfg.maxConcurrent, cfg.trace)

	m := &Manager{
		id:        uuid.New().String(),
		cfg:       cfg,
		transport: transport,
		corr:      corr,
		alloc:     alloc,
		session:   session,
		walker:    walker,
		tuner:     tuner,
		orch:      orch,
	}

	go transport.Serve(corr.HandleDatagram)
	return m, nil
}

// ID returns a value unique to this Manager instance, suitable for
// tagging logs or metrics in a process that runs more than one.
func (m *Manager) ID() string { return m.id }

// Close releases the shared socket. Any requests still in flight are left
// to time out on their own; Close does not cancel them.
func (m *Manager) Close() error {
	return m.transport.Close()
}

// Metrics returns the Correlator's prometheus.Collector, for callers that
// want to register it with their own registry.
func (m *Manager) Metrics() *metricsCollector {
	return m.cfg.metrics
}

// resolve applies the engine-wide defaults to a caller-supplied Opts,
// filling in anything the caller left zero-valued (§4.7), including the
// walk budget (Opts.MaxEntries: 0 means "use the engine's default").
func (m *Manager) resolve(op Op, o Opts) Opts {
	o = m.cfg.resolveOpts(o)
	if o.Timeout <= 0 {
		o.Timeout = m.cfg.timeoutFor(op, o)
	}
	return o
}

// Get issues a GET for oids against target.
func (m *Manager) Get(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	return m.session.Get(ctx, target, oids, m.resolve(OpGet, o))
}

// GetNext issues a GETNEXT (or v2c GETBULK-as-GETNEXT) for oids.
func (m *Manager) GetNext(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	return m.session.GetNext(ctx, target, oids, m.resolve(OpGetNext, o))
}

// GetBulk issues a GETBULK for oids. Requires a v2c target.
func (m *Manager) GetBulk(ctx context.Context, target Target, oids []string, o Opts) (*PDU, error) {
	return m.session.GetBulk(ctx, target, oids, m.resolve(OpGetBulk, o))
}

// Set issues an SNMP SET for oids/values.
func (m *Manager) Set(ctx context.Context, target Target, oids []string, values []TypedValue, o Opts) (*PDU, error) {
	return m.session.Set(ctx, target, oids, values, m.resolve(OpSet, o))
}

// Walk walks rootToken's subtree on target. The walk's wall-clock time is
// bounded by the engine's walkTaskCap regardless of per-PDU timeouts
// (§4.7 "outer task-level cap of 20 minutes to prevent runaway").
func (m *Manager) Walk(ctx context.Context, target Target, rootToken string, o Opts) ([]Varbind, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.walkTaskCap)
	defer cancel()
	return m.walker.Walk(ctx, target, rootToken, m.resolve(OpWalk, o))
}

// WalkTable walks tableToken's subtree on target, same semantics as Walk,
// including the walkTaskCap bound.
func (m *Manager) WalkTable(ctx context.Context, target Target, tableToken string, o Opts) ([]Varbind, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.walkTaskCap)
	defer cancel()
	return m.walker.WalkTable(ctx, target, tableToken, m.resolve(OpWalkTable, o))
}

// WalkEnriched behaves like Walk but additionally runs the §6.4
// enrichment collaborator over the result when o.IncludeNames or
// o.IncludeFormat is set.
func (m *Manager) WalkEnriched(ctx context.Context, target Target, rootToken string, o Opts) ([]Varbind, []Enriched, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.walkTaskCap)
	defer cancel()
	return m.walker.WalkEnriched(ctx, target, rootToken, m.resolve(OpWalk, o))
}

// GetMulti, GetBulkMulti, WalkMulti and WalkTableMulti run items
// concurrently under the orchestrator's bounded cap, shaped per shape
// (C7, §4.7 return_format).
func (m *Manager) GetMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return m.orch.GetMulti(ctx, m.resolveItems(OpGet, items), shape)
}

func (m *Manager) GetBulkMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return m.orch.GetBulkMulti(ctx, m.resolveItems(OpGetBulk, items), shape)
}

func (m *Manager) WalkMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return m.orch.WalkMulti(ctx, m.resolveItems(OpWalk, items), shape)
}

func (m *Manager) WalkTableMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return m.orch.WalkTableMulti(ctx, m.resolveItems(OpWalkTable, items), shape)
}

// ExecuteMixed runs a heterogeneous batch of items, shaped per shape.
func (m *Manager) ExecuteMixed(ctx context.Context, items []Item, shape ResultShape) interface{} {
	resolved := make([]Item, len(items))
	for i, it := range items {
		it.Opts = m.resolve(it.Op, it.Opts)
		resolved[i] = it
	}
	return m.orch.ExecuteMixed(ctx, resolved, shape)
}

func (m *Manager) resolveItems(op Op, items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Opts = m.resolve(op, it.Opts)
		out[i] = it
	}
	return out
}
