package multiq

import (
	"context"
	"fmt"

	"github.com/autom8ter/multiq/errors"
)

// indexSentinel stands in for "no practical bound" on int indexes, which
// require concrete bounds for range lookups
const indexSentinel = int64(99999999999999999)

const (
	indexKindBin = "bin"
	indexKindInt = "int"
)

func isTextual(value any) bool {
	switch value.(type) {
	case string, []byte:
		return true
	}
	return false
}

func indexKind(value any) string {
	if isTextual(value) {
		return indexKindBin
	}
	return indexKindInt
}

// IndexEntry is a secondary index entry attached to a document when it is written
type IndexEntry struct {
	// Index is the index name, suffixed with its kind: <field>_bin or <field>_int
	Index string `json:"index"`
	// Value is the indexed value
	Value any `json:"value"`
}

// IndexFor derives the index entry for a field value. The index name matches
// the index the planner targets for filters on that field, so documents
// written with IndexFor entries are candidates for those filters.
func IndexFor(field string, value any) IndexEntry {
	return IndexEntry{
		Index: fmt.Sprintf("%s_%s", field, indexKind(value)),
		Value: value,
	}
}

// indexLookup is a single-field lookup against a typed secondary index
type indexLookup struct {
	index string
	exact bool
	value any
	from  any
	to    any
}

// translateFilter converts a filter into a native index lookup. The index kind
// is chosen by the filter value's type and strict/non-strict comparisons
// collapse to the same inclusive range - the map stage re-filters precisely.
func translateFilter(f Filter) (indexLookup, error) {
	var (
		kind     = indexKind(f.Value)
		max, min any
	)
	if kind == indexKindBin {
		max, min = "", ""
	} else {
		max, min = indexSentinel, -indexSentinel
	}
	index := fmt.Sprintf("%s_%s", f.Field, kind)
	switch f.Op {
	case OpEq:
		return indexLookup{index: index, exact: true, value: f.Value}, nil
	case OpGt, OpGte:
		return indexLookup{index: index, from: f.Value, to: max}, nil
	case OpLt, OpLte:
		return indexLookup{index: index, from: min, to: f.Value}, nil
	default:
		return indexLookup{}, errors.New(errors.Validation, "invalid filter operator: %s", f.Op)
	}
}

// keys executes the lookup and returns the keys of matching documents
func (l indexLookup) keys(ctx context.Context, reader IndexReader, bucket string) ([]string, error) {
	if l.exact {
		return reader.IndexExact(ctx, bucket, l.index, l.value)
	}
	return reader.IndexRange(ctx, bucket, l.index, l.from, l.to)
}
