package kv

import "context"

// DB is a transactional key value store
type DB interface {
	// Tx executes the given function within a transaction. The transaction is
	// committed if the function returns nil and rolled back otherwise.
	Tx(ctx context.Context, readOnly bool, fn func(tx Tx) error) error
	// DropPrefix drops all keys under the given prefix(es)
	DropPrefix(ctx context.Context, prefix ...[]byte) error
	// Close closes the database
	Close(ctx context.Context) error
}

// IterOpts are options for creating an iterator
type IterOpts struct {
	// Prefix restricts iteration to keys with the given prefix
	Prefix []byte `json:"prefix"`
	// Seek positions the iterator at the first key >= Seek
	Seek []byte `json:"seek"`
	// UpperBound stops iteration once a key greater than it is reached
	UpperBound []byte `json:"upper_bound"`
	// Reverse iterates in descending key order
	Reverse bool `json:"reverse"`
}

// Tx is a transaction against a DB
type Tx interface {
	// Get returns the value of the key or nil if it does not exist
	Get(ctx context.Context, key []byte) ([]byte, error)
	// Set sets the key value pair
	Set(ctx context.Context, key, value []byte) error
	// Delete deletes the key
	Delete(ctx context.Context, key []byte) error
	// NewIterator creates an iterator scoped to the transaction
	NewIterator(opts IterOpts) (Iterator, error)
}

// Iterator iterates over keys in a transaction
type Iterator interface {
	// Valid returns whether the iterator is positioned on a key within bounds
	Valid() bool
	// Key returns the current key
	Key() []byte
	// Value returns the current value
	Value() ([]byte, error)
	// Next advances the iterator
	Next() error
	// Close closes the iterator
	Close()
}
