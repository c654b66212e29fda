package snmp

import (
	"context"
)

// defaultWalkBudget bounds the number of varbinds a single walk will
// accumulate when the caller does not specify one, keeping memory bounded
// for pathologically large tables (§9 "long-running walk as iteration").
const defaultWalkBudget = 1 << 20

// WalkEngine drives the per-target GETNEXT/GETBULK iteration described in
// §4.5, built atop a Session for the individual PDU exchanges and a Tuner
// for in-flight max-repetitions adjustment.
type WalkEngine struct {
	session  *Session
	tuner    *Tuner
	trace    *Trace
	enricher Enricher
	mibDB    MIBRegistry
}

func newWalkEngine(s *Session, t *Tuner, trace *Trace, enricher Enricher, mibDB MIBRegistry) *WalkEngine {
	return &WalkEngine{session: s, tuner: t, trace: trace, enricher: enricher, mibDB: mibDB}
}

// walkState is the §3 Walk state: {target, root_oid, cursor_oid,
// accumulator, remaining_budget, tuner_state}. It lives only for the
// duration of a single walk call (§3 Lifecycles).
type walkState struct {
	target          Target
	root            OID
	cursor          OID
	accumulator     []Varbind
	remainingBudget int
	maxRepetitions  int
}

// Walk runs the walk appropriate to the target's version: GETNEXT for v1,
// GETBULK for v2c (§4.5). rootToken may be a symbolic name, a numeric OID,
// or empty (accepting the whole MIB tree, §4.5 scope test).
func (w *WalkEngine) Walk(ctx context.Context, target Target, rootToken string, o Opts) ([]Varbind, error) {
	if target.Version == V1 {
		return w.walkGetNext(ctx, target, rootToken, o)
	}
	return w.walkGetBulk(ctx, target, rootToken, o)
}

// WalkTable is the table-walk specialization (§4.5): identical semantics,
// but the caller supplies a table OID and the first varbind outside the
// table ends the walk. It is the same scope test applied to a
// caller-named subtree, so it reuses Walk directly.
func (w *WalkEngine) WalkTable(ctx context.Context, target Target, tableToken string, o Opts) ([]Varbind, error) {
	return w.Walk(ctx, target, tableToken, o)
}

// WalkEnriched behaves like Walk but, when o.IncludeNames or
// o.IncludeFormat is set, also runs every returned varbind through the
// §6.4 enrichment collaborator (§4.5 "enriched map if the external
// enrichment collaborator is enabled"). The plain varbind list is always
// returned alongside it; enriched is nil when neither option is set.
func (w *WalkEngine) WalkEnriched(ctx context.Context, target Target, rootToken string, o Opts) (vbs []Varbind, enriched []Enriched, err error) {
	vbs, err = w.Walk(ctx, target, rootToken, o)
	if err != nil {
		return nil, nil, err
	}
	if !o.IncludeNames && !o.IncludeFormat {
		return vbs, nil, nil
	}
	enriched = make([]Enriched, len(vbs))
	for i, vb := range vbs {
		enriched[i] = w.enricher.Enrich(vb, o.IncludeNames, o.IncludeFormat, w.mibDB)
	}
	return vbs, enriched, nil
}

func (w *WalkEngine) newState(target Target, rootToken string, o Opts) (*walkState, error) {
	var root OID
	if rootToken != "" {
		r, err := resolveOIDToken(w.session.mibDB, w.session.oidutil, rootToken)
		if err != nil {
			return nil, err
		}
		root = r
	}
	budget := o.MaxEntries
	if budget == 0 {
		budget = defaultWalkBudget
	}
	maxRep := o.MaxRepetitions
	if maxRep == 0 {
		maxRep = w.tuner.InitialSize(target)
	}
	return &walkState{
		target:          target,
		root:            root,
		cursor:          root,
		remainingBudget: budget,
		maxRepetitions:  maxRep,
	}, nil
}

// walkGetNext implements the §4.5 GETNEXT walk.
func (w *WalkEngine) walkGetNext(ctx context.Context, target Target, rootToken string, o Opts) ([]Varbind, error) {
	st, err := w.newState(target, rootToken, o)
	if err != nil {
		return nil, err
	}
	if st.remainingBudget <= 0 {
		return []Varbind{}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return st.accumulator, nil
		default:
		}

		cursorToken := st.cursor.String()
		if len(st.cursor) == 0 {
			cursorToken = ""
		}
		pdu, err := w.session.GetNext(ctx, target, []string{cursorToken}, o)
		if err != nil {
			if ctx.Err() != nil {
				return st.accumulator, nil
			}
			return nil, err
		}
		if len(pdu.Varbinds) == 0 {
			return st.accumulator, nil
		}
		vb := pdu.Varbinds[0]

		// (b) exception varbind: terminates cleanly.
		if vb.TypedValue.Type.IsException() {
			return st.accumulator, nil
		}
		// (a) out of scope.
		if !vb.OID.IsDescendantOf(st.root) {
			return st.accumulator, nil
		}
		// (c) defensive stop: no progress.
		if len(st.cursor) > 0 && vb.OID.Compare(st.cursor) <= 0 {
			return st.accumulator, nil
		}

		st.accumulator = append(st.accumulator, vb)
		st.cursor = vb.OID
		st.remainingBudget--
		w.trace.WalkStep(target, st.root, st.cursor, len(st.accumulator))

		// (d) budget exhausted.
		if st.remainingBudget <= 0 {
			return st.accumulator, nil
		}
	}
}

// walkGetBulk implements the §4.5 GETBULK walk.
func (w *WalkEngine) walkGetBulk(ctx context.Context, target Target, rootToken string, o Opts) ([]Varbind, error) {
	st, err := w.newState(target, rootToken, o)
	if err != nil {
		return nil, err
	}
	if st.remainingBudget <= 0 {
		return []Varbind{}, nil
	}

	for {
		select {
		case <-ctx.Done():
			return st.accumulator, nil
		default:
		}

		batchOpts := o
		batchOpts.NonRepeaters = 0
		batchOpts.MaxRepetitions = st.maxRepetitions

		cursorToken := st.cursor.String()
		if len(st.cursor) == 0 {
			cursorToken = ""
		}

		start := w.tuner.now()
		pdu, err := w.session.GetBulk(ctx, target, []string{cursorToken}, batchOpts)
		elapsed := w.tuner.since(start)
		if err != nil {
			if ctx.Err() != nil {
				return st.accumulator, nil
			}
			w.tuner.RecordError(target)
			return nil, err
		}

		acceptedInBatch := 0
		lastAccepted := OID(nil)
		stop := false
		for _, vb := range pdu.Varbinds {
			if vb.TypedValue.Type == EndOfMIBView {
				stop = true
				break
			}
			if !vb.OID.IsDescendantOf(st.root) {
				stop = true
				break
			}
			st.accumulator = append(st.accumulator, vb)
			lastAccepted = vb.OID
			acceptedInBatch++
			st.remainingBudget--
			if st.remainingBudget <= 0 {
				return st.accumulator, nil
			}
		}

		w.tuner.RecordBatch(target, elapsed, st.maxRepetitions, acceptedInBatch)
		w.trace.WalkStep(target, st.root, st.cursor, len(st.accumulator))

		if acceptedInBatch == 0 {
			return st.accumulator, nil
		}
		if len(st.cursor) > 0 && lastAccepted.Compare(st.cursor) <= 0 {
			// Defensive stop: cursor failed to advance.
			return st.accumulator, nil
		}
		st.cursor = lastAccepted
		st.maxRepetitions = w.tuner.NextSize(target, st.maxRepetitions)

		if stop {
			return st.accumulator, nil
		}
	}
}
