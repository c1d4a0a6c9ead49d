package multiq

import "context"

// IndexReader reads a store's typed secondary indexes. It is the native query
// primitive the planner narrows candidate keys with: a single-field exact or
// bounded-range lookup returning the keys of matching documents.
type IndexReader interface {
	// IndexExact returns the keys of documents whose index entry equals the value
	IndexExact(ctx context.Context, bucket, index string, value any) ([]string, error)
	// IndexRange returns the keys of documents whose index entry falls within
	// [from, to]. An empty textual bound is unbounded on that side.
	IndexRange(ctx context.Context, bucket, index string, from, to any) ([]string, error)
}
