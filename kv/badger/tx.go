package badger

import (
	"context"
	"sync/atomic"

	"github.com/autom8ter/multiq/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerTx struct {
	txn      *badger.Txn
	db       *badgerKV
	readOnly bool
	// version is the db write version read before this transaction's snapshot
	// opened - cache entries are tagged with it and served only while current
	version uint64
}

type cacheEntry struct {
	version uint64
	value   []byte
}

func (b *badgerTx) Get(ctx context.Context, key []byte) ([]byte, error) {
	if b.readOnly {
		if cached, ok := b.db.cache.Get(string(key)); ok {
			entry := cached.(cacheEntry)
			if entry.version == atomic.LoadUint64(&b.db.version) {
				return entry.value, nil
			}
		}
	}
	i, err := b.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}
	val, err := i.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	if b.readOnly {
		b.db.cache.Set(string(key), cacheEntry{version: b.version, value: val}, int64(len(val)))
	}
	return val, nil
}

func (b *badgerTx) Set(ctx context.Context, key, value []byte) error {
	return b.txn.SetEntry(&badger.Entry{
		Key:   key,
		Value: value,
	})
}

func (b *badgerTx) Delete(ctx context.Context, key []byte) error {
	return b.txn.Delete(key)
}

func (b *badgerTx) NewIterator(kopts kv.IterOpts) (kv.Iterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	opts.PrefetchSize = 10
	opts.Prefix = kopts.Prefix
	opts.Reverse = kopts.Reverse
	if kopts.Seek == nil && kopts.UpperBound != nil && kopts.Reverse {
		kopts.Seek = kopts.UpperBound
	}
	iter := b.txn.NewIterator(opts)
	if kopts.Seek == nil {
		iter.Rewind()
	} else {
		iter.Seek(kopts.Seek)
	}
	return &badgerIterator{iter: iter, opts: kopts}, nil
}
