package badger

import (
	"context"
	"sync/atomic"

	"github.com/autom8ter/multiq/kv"
	"github.com/autom8ter/multiq/kv/registry"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/ristretto"
	"github.com/spf13/cast"
)

func init() {
	registry.Register("badger", func(params map[string]interface{}) (kv.DB, error) {
		return open(cast.ToString(params["storage_path"]))
	})
}

type badgerKV struct {
	// version counts committed write transactions. Cached reads record the
	// version they were taken at and are only served while it is current, so
	// a value read from a snapshot older than the last write is never served.
	version uint64
	db      *badger.DB
	cache   *ristretto.Cache
}

// open opens a badger backed kv.DB - an empty storage path opens an in-memory store
func open(storagePath string) (kv.DB, error) {
	opts := badger.DefaultOptions(storagePath)
	if storagePath == "" {
		opts.InMemory = true
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts = opts.WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100000,
		MaxCost:     100000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &badgerKV{
		db:    db,
		cache: cache,
	}, nil
}

func (b *badgerKV) Tx(ctx context.Context, readOnly bool, fn func(tx kv.Tx) error) error {
	if readOnly {
		// read the version before the snapshot opens - a write committing in
		// between makes the version stale, not the snapshot
		version := atomic.LoadUint64(&b.version)
		return b.db.View(func(txn *badger.Txn) error {
			return fn(&badgerTx{txn: txn, db: b, readOnly: true, version: version})
		})
	}
	// bump on both sides of the write: entries cached before or during it can
	// never be served afterwards
	atomic.AddUint64(&b.version, 1)
	err := b.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, db: b})
	})
	atomic.AddUint64(&b.version, 1)
	return err
}

func (b *badgerKV) DropPrefix(ctx context.Context, prefix ...[]byte) error {
	atomic.AddUint64(&b.version, 1)
	err := b.db.DropPrefix(prefix...)
	atomic.AddUint64(&b.version, 1)
	b.cache.Clear()
	return err
}

func (b *badgerKV) Close(ctx context.Context) error {
	if !b.db.Opts().InMemory {
		if err := b.db.Sync(); err != nil {
			return err
		}
	}
	b.cache.Close()
	return b.db.Close()
}
