package multiq

import (
	"context"
	"sync"
	"time"

	"github.com/autom8ter/machine/v4"
	"github.com/autom8ter/multiq/errors"
	"golang.org/x/sync/errgroup"
)

// Result is a key and decoded document emitted from a computation job
type Result struct {
	// Key is the document's key within its bucket
	Key string `json:"key"`
	// Document is the decoded document
	Document *Document `json:"document"`
}

// Decode decodes the result's document into the given output based on json tags
func (r Result) Decode(output any) error {
	return r.Document.Decode(output)
}

// MapFunc is a computation job's map stage - it is invoked once per input
// document and emits zero or more results. Map stages may be invoked
// concurrently.
type MapFunc func(key string, doc *Document) ([]Result, error)

// ReduceFunc is a computation job's reduce stage - it receives the full result
// set of the previous stage and returns the next one
type ReduceFunc func(results []Result) ([]Result, error)

// Job describes a single computation job: an input key set (or a whole bucket
// when Keys is empty), a map stage, and zero or more reduce stages executed in
// declared order. A Job is built fresh for each run and never reused.
type Job struct {
	// Bucket is the bucket the job reads from
	Bucket string `json:"bucket"`
	// Keys are the input document keys - empty means the whole bucket
	Keys []string `json:"keys"`
	// Map is the map stage - always required
	Map MapFunc `json:"-"`
	// Reduces are the reduce stages in execution order
	Reduces []ReduceFunc `json:"-"`
}

// Engine executes computation jobs. The query planner treats the engine as an
// opaque, internally parallel black box - it does not manage the engine's
// scheduling, retries, or partial-failure recovery.
type Engine interface {
	// Submit submits the job and returns a stream of its results. The timeout
	// bounds the job's execution including result delivery.
	Submit(ctx context.Context, job Job, timeout time.Duration) (*Stream, error)
}

// mapConcurrency bounds parallel document loads in the local engine's map phase
const mapConcurrency = 8

// localEngine executes jobs directly against an embedded DB
type localEngine struct {
	db      *DB
	logger  Logger
	machine machine.Machine
}

// newLocalEngine shares the DB's machine so DB.Close waits for in-flight jobs
func newLocalEngine(db *DB) *localEngine {
	return &localEngine{
		db:      db,
		logger:  db.logger,
		machine: db.machine,
	}
}

func (e *localEngine) Submit(ctx context.Context, job Job, timeout time.Duration) (*Stream, error) {
	if job.Bucket == "" {
		return nil, errors.New(errors.Validation, "job: empty bucket")
	}
	if job.Map == nil {
		return nil, errors.New(errors.Validation, "job: missing map stage")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	stream := newStream()
	e.machine.Go(ctx, func(ctx context.Context) error {
		defer cancel()
		start := time.Now()
		results, err := e.execute(ctx, job)
		if err != nil {
			stream.fail(errors.Wrap(err, 0, "job execution failed"))
			return nil
		}
		e.logger.Debug(ctx, "job executed", map[string]any{
			"bucket":         job.Bucket,
			"inputs":         len(job.Keys),
			"reduces":        len(job.Reduces),
			"results":        len(results),
			"execution_time": time.Since(start).String(),
		})
		stream.deliver(ctx, results)
		return nil
	})
	return stream, nil
}

func (e *localEngine) execute(ctx context.Context, job Job) ([]Result, error) {
	mapped, err := e.mapPhase(ctx, job)
	if err != nil {
		return nil, err
	}
	for _, reduce := range job.Reduces {
		mapped, err = reduce(mapped)
		if err != nil {
			return nil, err
		}
	}
	return mapped, nil
}

func (e *localEngine) mapPhase(ctx context.Context, job Job) ([]Result, error) {
	if len(job.Keys) == 0 {
		var mapped []Result
		if err := e.db.scanBucket(ctx, job.Bucket, func(key string, doc *Document) (bool, error) {
			out, err := job.Map(key, doc)
			if err != nil {
				return false, err
			}
			mapped = append(mapped, out...)
			return true, nil
		}); err != nil {
			return nil, err
		}
		return mapped, nil
	}
	var (
		mu     sync.Mutex
		mapped []Result
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(mapConcurrency)
	for _, key := range job.Keys {
		key := key
		eg.Go(func() error {
			doc, err := e.db.Get(ctx, job.Bucket, key)
			if err != nil {
				// a candidate key deleted mid-run contributes nothing
				if errors.Extract(err).Code == errors.NotFound {
					return nil
				}
				return err
			}
			out, err := job.Map(key, doc)
			if err != nil {
				return err
			}
			if len(out) > 0 {
				mu.Lock()
				mapped = append(mapped, out...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return mapped, nil
}
