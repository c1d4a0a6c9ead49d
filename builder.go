package multiq

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/autom8ter/multiq/errors"
	"github.com/samber/lo"
)

// DefaultTimeout bounds a query's computation job when Run is called without
// an explicit timeout
const DefaultTimeout = 9 * time.Second

// MultiQuery composes multiple secondary index filters with ordering and
// pagination against a single bucket. The store's native index supports only
// single-field lookups, so a run first unions per-filter index lookups into a
// cheap candidate key set, then submits a computation job that applies the
// full predicate set, ordering, and pagination precisely.
//
// A MultiQuery is a mutable builder: chain Filter/OrderBy/Offset/Limit, call
// Run, and Reset to reuse it. Run does not mutate the builder. A MultiQuery is
// not safe for concurrent use - a second Run, Reset, or mutation while a run
// is in flight has undefined behavior.
type MultiQuery struct {
	bucket  string
	reader  IndexReader
	engine  Engine
	logger  Logger
	filters []Filter
	order   OrderBy
	offset  int
	limit   int
	script  string
}

// NewQuery creates a query against the bucket using the given index reader and
// computation engine
func NewQuery(bucket string, reader IndexReader, engine Engine) *MultiQuery {
	return &MultiQuery{
		bucket: bucket,
		reader: reader,
		engine: engine,
		logger: noOpLogger{},
	}
}

// Filter appends a condition ANDed with the query's other filters. The
// operator is validated when the query runs, not here.
func (q *MultiQuery) Filter(field string, op Op, value any) *MultiQuery {
	q.filters = append(q.filters, Filter{Field: field, Op: op, Value: value})
	return q
}

// Offset sets the result offset. Offsets are not bounds-checked and only take
// effect alongside a non-zero limit.
func (q *MultiQuery) Offset(offset int) *MultiQuery {
	q.offset = offset
	return q
}

// Limit sets the maximum number of results. Zero means unbounded.
func (q *MultiQuery) Limit(limit int) *MultiQuery {
	q.limit = limit
	return q
}

// OrderBy sorts results by the field - any direction other than DESC sorts
// ascending. At most one order is active; the last call wins. The sort is
// numeric; ordering by non-numeric fields is unsupported.
func (q *MultiQuery) OrderBy(field string, direction Direction) *MultiQuery {
	if direction != DESC {
		direction = ASC
	}
	q.order = OrderBy{Field: field, Direction: direction}
	return q
}

// Script ANDs a javascript boolean expression into the map stage alongside the
// compiled filters. The expression is evaluated per document with bindings
// `key` and `doc`.
func (q *MultiQuery) Script(src string) *MultiQuery {
	q.script = src
	return q
}

// Reset clears filters, order, pagination, and script, returning the builder
// to its initial state. It may be called at any time, including mid-chain.
func (q *MultiQuery) Reset() *MultiQuery {
	q.filters = nil
	q.order = OrderBy{}
	q.offset = 0
	q.limit = 0
	q.script = ""
	return q
}

// snapshot copies the mutable query state so Run is bound to the state at call time
func (q *MultiQuery) snapshot() MultiQuery {
	snap := *q
	snap.filters = append([]Filter{}, q.filters...)
	return snap
}

// Run executes the query: it translates each filter into an index lookup,
// unions the resulting keys into a candidate set (falling back to the whole
// bucket when no candidates are produced), compiles the filters into a single
// predicate, assembles the map/reduce job, and submits it with the timeout
// (DefaultTimeout when <= 0). The returned stream is lazy and single-pass.
func (q *MultiQuery) Run(ctx context.Context, timeout time.Duration) (*Stream, error) {
	snap := q.snapshot()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	keys, err := snap.candidateKeys(ctx)
	if err != nil {
		return nil, err
	}
	predicate, err := compilePredicate(snap.filters)
	if err != nil {
		return nil, err
	}
	mapFn := predicateMap(predicate)
	if snap.script != "" {
		mapFn, err = withScriptFilter(mapFn, snap.script)
		if err != nil {
			return nil, err
		}
	}
	job := assembleJob(snap.bucket, keys, mapFn, snap.order, snap.offset, snap.limit)
	q.logger.Debug(ctx, "assembled query plan", map[string]any{
		"bucket":     snap.bucket,
		"predicate":  predicate.Expr(),
		"candidates": len(keys),
		"full_scan":  len(keys) == 0,
		"reduces":    len(job.Reduces),
	})
	stream, err := snap.engine.Submit(ctx, job, timeout)
	if err != nil {
		return nil, errors.Wrap(err, 0, "failed to submit job: %s", snap.bucket)
	}
	return stream, nil
}

// candidateKeys issues one index lookup per filter sequentially and unions the
// returned keys. An empty union - zero filters or filters matching nothing -
// yields nil, which the job treats as a whole-bucket input. That full scan
// favors correctness over minimal work; the map stage still filters precisely.
func (q *MultiQuery) candidateKeys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, f := range q.filters {
		lookup, err := translateFilter(f)
		if err != nil {
			return nil, err
		}
		found, err := lookup.keys(ctx, q.reader, q.bucket)
		if err != nil {
			return nil, errors.Wrap(err, 0, "index lookup failed: %s", lookup.index)
		}
		keys = append(keys, found...)
	}
	keys = lo.Uniq(keys)
	sort.Strings(keys)
	return keys, nil
}

// String deterministically encodes the builder state for diagnostics
func (q *MultiQuery) String() string {
	var parts []string
	for _, f := range q.filters {
		parts = append(parts, fmt.Sprintf("filter(%s)", f))
	}
	if q.order.Field == "" {
		parts = append(parts, `order(None, "ASC")`)
	} else {
		parts = append(parts, fmt.Sprintf("order(%s, %q)", q.order.Field, string(q.order.Direction)))
	}
	parts = append(parts, fmt.Sprintf("offset(%d)", q.offset), fmt.Sprintf("limit(%d)", q.limit))
	return fmt.Sprintf("MultiQuery(bucket=%s).%s", q.bucket, strings.Join(parts, "."))
}
