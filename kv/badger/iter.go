package badger

import (
	"bytes"

	"github.com/autom8ter/multiq/kv"
	"github.com/dgraph-io/badger/v3"
)

type badgerIterator struct {
	opts kv.IterOpts
	iter *badger.Iterator
}

func (b *badgerIterator) Valid() bool {
	if b.opts.Prefix != nil && !b.iter.ValidForPrefix(b.opts.Prefix) {
		return false
	}
	if !b.iter.Valid() {
		return false
	}
	if b.opts.UpperBound != nil && !b.opts.Reverse && bytes.Compare(b.Key(), b.opts.UpperBound) > 0 {
		return false
	}
	return true
}

func (b *badgerIterator) Key() []byte {
	return b.iter.Item().Key()
}

func (b *badgerIterator) Value() ([]byte, error) {
	return b.iter.Item().ValueCopy(nil)
}

func (b *badgerIterator) Next() error {
	b.iter.Next()
	return nil
}

func (b *badgerIterator) Close() {
	b.iter.Close()
}
