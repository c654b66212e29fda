package snmp

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ResultShape selects how Orchestrator batch calls package up per-item
// results (§4.7 Multi Orchestrator result contract).
type ResultShape int

const (
	// ShapeList returns results in submission order.
	ShapeList ResultShape = iota
	// ShapeWithTargets pairs each result with the Target it was issued to.
	ShapeWithTargets
	// ShapeMap keys results by "host:port".
	ShapeMap
)

// Item is one operation submitted to a batch call: an op kind, a target,
// the OID token(s) involved, optional set values, and per-item Opts
// overriding the engine defaults.
type Item struct {
	Op        Op
	Target    Target
	OIDs      []string
	SetValues []TypedValue
	Opts      Opts
}

// ItemResult is one Item's outcome. Exactly one of PDU/Varbinds/Err is
// meaningful, depending on Op: Get/GetNext/GetBulk/Set populate PDU, Walk/
// WalkTable populate Varbinds. A per-item failure never aborts the rest of
// the batch (§4.7 "isolated per-operation failure handling").
type ItemResult struct {
	Target   Target
	PDU      *PDU
	Varbinds []Varbind
	Err      error
}

// Orchestrator fans a batch of heterogeneous operations out across
// multiple targets with a bounded number of concurrent in-flight requests
// (C7, §4.7). The concurrency cap is enforced with a weighted semaphore,
// the same bounded-fan-out idiom used for connection-limited work
// elsewhere in the pack.
type Orchestrator struct {
	session *Session
	walker  *WalkEngine
	sem     *semaphore.Weighted
	trace   *Trace
}

func newOrchestrator(s *Session, w *WalkEngine, maxConcurrent int, trace *Trace) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if trace == nil {
		trace = NoOpTrace
	}
	return &Orchestrator{
		session: s,
		walker:  w,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		trace:   trace,
	}
}

// GetMulti issues a GET per item, shaped per shape (§4.7 return_format).
func (o *Orchestrator) GetMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return o.runShaped(ctx, withOp(items, OpGet), shape)
}

// GetBulkMulti issues a GETBULK per item, shaped per shape.
func (o *Orchestrator) GetBulkMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return o.runShaped(ctx, withOp(items, OpGetBulk), shape)
}

// WalkMulti walks each item's target/root concurrently, shaped per shape.
func (o *Orchestrator) WalkMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return o.runShaped(ctx, withOp(items, OpWalk), shape)
}

// WalkTableMulti walks each item's target/table concurrently, shaped per
// shape.
func (o *Orchestrator) WalkTableMulti(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return o.runShaped(ctx, withOp(items, OpWalkTable), shape)
}

// ExecuteMixed runs a batch of heterogeneous operations (mixed Get/GetNext/
// GetBulk/Set/Walk/WalkTable items, possibly against different targets)
// concurrently under the same bounded cap, shaped per shape (§4.7
// "heterogeneous dispatch").
func (o *Orchestrator) ExecuteMixed(ctx context.Context, items []Item, shape ResultShape) interface{} {
	return o.runShaped(ctx, items, shape)
}

func withOp(items []Item, op Op) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Op = op
		out[i] = it
	}
	return out
}

// runShaped runs items under the concurrency cap and packages the results
// per shape, the common path behind every public batch operation.
func (o *Orchestrator) runShaped(ctx context.Context, items []Item, shape ResultShape) interface{} {
	results := o.run(ctx, items)
	return shapeResults(items, results, shape)
}

// run executes every item under the concurrency cap, isolating each
// item's failure so one bad target never aborts the others (§4.7).
func (o *Orchestrator) run(ctx context.Context, items []Item) []ItemResult {
	results := make([]ItemResult, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		if err := o.sem.Acquire(ctx, 1); err != nil {
			results[i] = ItemResult{Target: item.Target, Err: wrapErr(ErrTaskFailed, err, "acquire slot")}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer o.sem.Release(1)
			start := time.Now()
			r := o.runOne(ctx, item)
			o.trace.BatchComplete(item.Target, item.Op, r.Err, time.Since(start))
			results[i] = r
		}()
	}
	wg.Wait()
	return results
}

func (o *Orchestrator) runOne(ctx context.Context, item Item) ItemResult {
	switch item.Op {
	case OpGet:
		pdu, err := o.session.Get(ctx, item.Target, item.OIDs, item.Opts)
		return ItemResult{Target: item.Target, PDU: pdu, Err: err}
	case OpGetNext:
		pdu, err := o.session.GetNext(ctx, item.Target, item.OIDs, item.Opts)
		return ItemResult{Target: item.Target, PDU: pdu, Err: err}
	case OpGetBulk:
		pdu, err := o.session.GetBulk(ctx, item.Target, item.OIDs, item.Opts)
		return ItemResult{Target: item.Target, PDU: pdu, Err: err}
	case OpSet:
		pdu, err := o.session.Set(ctx, item.Target, item.OIDs, item.SetValues, item.Opts)
		return ItemResult{Target: item.Target, PDU: pdu, Err: err}
	case OpWalk:
		root := ""
		if len(item.OIDs) > 0 {
			root = item.OIDs[0]
		}
		vbs, err := o.walker.Walk(ctx, item.Target, root, item.Opts)
		return ItemResult{Target: item.Target, Varbinds: vbs, Err: err}
	case OpWalkTable:
		table := ""
		if len(item.OIDs) > 0 {
			table = item.OIDs[0]
		}
		vbs, err := o.walker.WalkTable(ctx, item.Target, table, item.Opts)
		return ItemResult{Target: item.Target, Varbinds: vbs, Err: err}
	default:
		return ItemResult{Target: item.Target, Err: wrapKind(ErrTaskFailed, "unknown op %d", item.Op)}
	}
}

// shapeResults renders results per the requested ResultShape (§4.7).
func shapeResults(items []Item, results []ItemResult, shape ResultShape) interface{} {
	switch shape {
	case ShapeWithTargets:
		return results
	case ShapeMap:
		out := make(map[string]ItemResult, len(results))
		for i, r := range results {
			out[targetKey(items[i].Target)] = r
		}
		return out
	default:
		return results
	}
}
