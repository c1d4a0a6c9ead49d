package multiq

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autom8ter/machine/v4"
	"github.com/autom8ter/multiq/errors"
	"github.com/autom8ter/multiq/internal/indexing"
	"github.com/autom8ter/multiq/kv"
	_ "github.com/autom8ter/multiq/kv/badger" // embedded default provider
	"github.com/autom8ter/multiq/kv/kvutil"
	"github.com/autom8ter/multiq/kv/registry"
	"github.com/autom8ter/multiq/util"
	"github.com/segmentio/ksuid"
)

// Config configures a DB
type Config struct {
	// Provider is the registered kv provider to open - "badger" or "tikv"
	Provider string `json:"provider" validate:"required"`
	// Params are provider specific parameters, eg: storage_path, pd_addr
	Params map[string]any `json:"params"`
	// LogLevel is the level of the default logger (debug, info, warn, error)
	LogLevel string `json:"log_level"`
}

// ParseConfig parses a yaml or json encoded Config
func ParseConfig(content []byte) (Config, error) {
	var c Config
	bits, err := util.YAMLToJSON(content)
	if err != nil {
		return c, errors.Wrap(err, errors.Validation, "failed to parse config")
	}
	if err := json.Unmarshal(bits, &c); err != nil {
		return c, errors.Wrap(err, errors.Validation, "failed to parse config")
	}
	return c, nil
}

// Action is the type of change applied to a document
type Action string

const (
	// SetAction indicates a document was created or overwritten
	SetAction Action = "set"
	// DeleteAction indicates a document was deleted
	DeleteAction Action = "delete"
)

// Event is a change to a document within a bucket
type Event struct {
	Action    Action    `json:"action"`
	Bucket    string    `json:"bucket"`
	Key       string    `json:"key"`
	Document  *Document `json:"document,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// DB is an embedded document store over a transactional key value provider.
// Documents live in named buckets and may carry typed secondary index entries
// (<field>_bin / <field>_int) that queries narrow candidate keys with.
type DB struct {
	config  Config
	kv      kv.DB
	machine machine.Machine
	logger  Logger
	engine  Engine
}

// Open opens a DB against the configured kv provider
func Open(ctx context.Context, config Config, opts ...DBOpt) (*DB, error) {
	if err := util.ValidateStruct(config); err != nil {
		return nil, err
	}
	kvDB, err := registry.Open(config.Provider, config.Params)
	if err != nil {
		return nil, errors.Wrap(err, 0, "failed to open kv provider: %s", config.Provider)
	}
	d := &DB{
		config:  config,
		kv:      kvDB,
		machine: machine.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		logger, err := NewLogger(config.LogLevel, map[string]any{
			"provider": config.Provider,
		})
		if err != nil {
			return nil, err
		}
		d.logger = logger
	}
	if d.engine == nil {
		d.engine = newLocalEngine(d)
	}
	return d, nil
}

// Query creates a query against the bucket backed by the DB's indexes and engine
func (d *DB) Query(bucket string) *MultiQuery {
	q := NewQuery(bucket, d, d.engine)
	q.logger = d.logger
	return q
}

// Put stores the document under the key along with its secondary index
// entries, replacing any entries from a previous write. An empty key generates
// a ksuid. The stored key is returned.
func (d *DB) Put(ctx context.Context, bucket, key string, doc *Document, entries ...IndexEntry) (string, error) {
	if bucket == "" {
		return "", errors.New(errors.Validation, "empty bucket")
	}
	if doc == nil || !doc.Valid() {
		return "", errors.New(errors.Validation, "invalid document")
	}
	if key == "" {
		key = ksuid.New().String()
	}
	if err := d.kv.Tx(ctx, false, func(tx kv.Tx) error {
		if err := d.clearIndexEntries(ctx, tx, bucket, key); err != nil {
			return err
		}
		if err := tx.Set(ctx, indexing.Documents(bucket).ID(key).Path(), doc.Bytes()); err != nil {
			return err
		}
		for _, e := range entries {
			if e.Index == "" {
				return errors.New(errors.Validation, "empty index name")
			}
			if err := tx.Set(ctx, indexing.Index(bucket, e.Index).Value(e.Value).ID(key).Path(), []byte(key)); err != nil {
				return err
			}
		}
		if len(entries) > 0 {
			return tx.Set(ctx, indexing.Entries(bucket).ID(key).Path(), []byte(util.JSONString(entries)))
		}
		return nil
	}); err != nil {
		return "", errors.Wrap(err, 0, "failed to put document: %s/%s", bucket, key)
	}
	d.machine.Publish(ctx, machine.Message{
		Channel: bucket,
		Body: Event{
			Action:    SetAction,
			Bucket:    bucket,
			Key:       key,
			Document:  doc,
			Timestamp: time.Now().UnixNano(),
		},
	})
	return key, nil
}

// Get returns the document stored under the key
func (d *DB) Get(ctx context.Context, bucket, key string) (*Document, error) {
	var doc *Document
	if err := d.kv.Tx(ctx, true, func(tx kv.Tx) error {
		bits, err := tx.Get(ctx, indexing.Documents(bucket).ID(key).Path())
		if err != nil {
			return err
		}
		if len(bits) == 0 {
			return errors.New(errors.NotFound, "document not found: %s/%s", bucket, key)
		}
		doc, err = NewDocumentFromBytes(bits)
		return err
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete deletes the document and its index entries
func (d *DB) Delete(ctx context.Context, bucket, key string) error {
	if err := d.kv.Tx(ctx, false, func(tx kv.Tx) error {
		if err := d.clearIndexEntries(ctx, tx, bucket, key); err != nil {
			return err
		}
		return tx.Delete(ctx, indexing.Documents(bucket).ID(key).Path())
	}); err != nil {
		return errors.Wrap(err, 0, "failed to delete document: %s/%s", bucket, key)
	}
	d.machine.Publish(ctx, machine.Message{
		Channel: bucket,
		Body: Event{
			Action:    DeleteAction,
			Bucket:    bucket,
			Key:       key,
			Timestamp: time.Now().UnixNano(),
		},
	})
	return nil
}

// clearIndexEntries removes the index entries recorded by the document's last write
func (d *DB) clearIndexEntries(ctx context.Context, tx kv.Tx, bucket, key string) error {
	record := indexing.Entries(bucket).ID(key).Path()
	bits, err := tx.Get(ctx, record)
	if err != nil {
		return err
	}
	if len(bits) == 0 {
		return nil
	}
	var entries []IndexEntry
	if err := json.Unmarshal(bits, &entries); err != nil {
		return errors.Wrap(err, errors.Internal, "corrupt index entry record: %s/%s", bucket, key)
	}
	for _, e := range entries {
		if err := tx.Delete(ctx, indexing.Index(bucket, e.Index).Value(e.Value).ID(key).Path()); err != nil {
			return err
		}
	}
	return tx.Delete(ctx, record)
}

// IndexExact returns the keys of documents whose entry in the index equals the value
func (d *DB) IndexExact(ctx context.Context, bucket, index string, value any) ([]string, error) {
	return d.scanIndex(ctx, kv.IterOpts{
		Prefix: indexing.Index(bucket, index).Value(value).Scope(),
	})
}

// IndexRange returns the keys of documents whose entry in the index falls
// within [from, to]. An empty textual bound leaves that side unbounded. The
// scan is deliberately coarse at the fringe - exact filtering is owed by the
// query's predicate stage, not the index.
func (d *DB) IndexRange(ctx context.Context, bucket, index string, from, to any) ([]string, error) {
	scope := indexing.Index(bucket, index).Scope()
	opts := kv.IterOpts{Prefix: scope}
	if fromBits := util.EncodeIndexValue(from); len(fromBits) > 0 {
		opts.Seek = append(append([]byte{}, scope...), fromBits...)
	}
	if toBits := util.EncodeIndexValue(to); len(toBits) > 0 {
		opts.UpperBound = kvutil.NextPrefix(append(append([]byte{}, scope...), toBits...))
	}
	return d.scanIndex(ctx, opts)
}

func (d *DB) scanIndex(ctx context.Context, opts kv.IterOpts) ([]string, error) {
	var keys []string
	if err := d.kv.Tx(ctx, true, func(tx kv.Tx) error {
		iter, err := tx.NewIterator(opts)
		if err != nil {
			return err
		}
		defer iter.Close()
		for iter.Valid() {
			val, err := iter.Value()
			if err != nil {
				return err
			}
			keys = append(keys, string(val))
			if err := iter.Next(); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, 0, "index scan failed")
	}
	return keys, nil
}

// scanBucket iterates every document in the bucket
func (d *DB) scanBucket(ctx context.Context, bucket string, fn func(key string, doc *Document) (bool, error)) error {
	scope := indexing.Documents(bucket).Scope()
	return d.kv.Tx(ctx, true, func(tx kv.Tx) error {
		iter, err := tx.NewIterator(kv.IterOpts{Prefix: scope})
		if err != nil {
			return err
		}
		defer iter.Close()
		for iter.Valid() {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			key := string(iter.Key()[len(scope):])
			bits, err := iter.Value()
			if err != nil {
				return err
			}
			doc, err := NewDocumentFromBytes(bits)
			if err != nil {
				return err
			}
			cont, err := fn(key, doc)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
			if err := iter.Next(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeStream streams the bucket's change events until the context is
// cancelled, fn returns false, or fn returns an error
func (d *DB) ChangeStream(ctx context.Context, bucket string, fn func(e Event) (bool, error)) error {
	return d.machine.Subscribe(ctx, bucket, func(ctx context.Context, msg machine.Message) (bool, error) {
		event, ok := msg.Body.(Event)
		if !ok {
			return false, errors.New(errors.Internal, "expected event type: %T got: %T", Event{}, msg.Body)
		}
		return fn(event)
	})
}

// DropBucket drops the bucket's documents and index entries
func (d *DB) DropBucket(ctx context.Context, bucket string) error {
	return d.kv.DropPrefix(ctx,
		indexing.Documents(bucket).Scope(),
		indexing.Indexes(bucket).Scope(),
		indexing.Entries(bucket).Scope(),
	)
}

// Close waits for in-flight jobs and closes the underlying kv provider
func (d *DB) Close(ctx context.Context) error {
	if err := d.machine.Wait(); err != nil {
		d.logger.Error(ctx, "error waiting for in-flight jobs", err, map[string]any{})
	}
	return d.kv.Close(ctx)
}
