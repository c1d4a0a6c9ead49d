package multiq

import (
	"sort"
)

// predicateMap builds the job's map stage from a compiled predicate: for each
// input document it emits (key, document) when the predicate passes and
// nothing otherwise. The map stage is always present, even with zero filters.
func predicateMap(p Predicate) MapFunc {
	return func(key string, doc *Document) ([]Result, error) {
		if !p.Match(doc) {
			return nil, nil
		}
		return []Result{{Key: key, Document: doc}}, nil
	}
}

// orderReduce builds the ordering reduce stage. The comparator is numeric
// (subtraction-based): ASC compares a-b, DESC compares b-a. Ordering by a
// non-numeric field is unsupported.
func orderReduce(order OrderBy) ReduceFunc {
	return func(results []Result) ([]Result, error) {
		sorted := make([]Result, len(results))
		copy(sorted, results)
		sort.SliceStable(sorted, func(i, j int) bool {
			a := sorted[i].Document.GetFloat(order.Field)
			b := sorted[j].Document.GetFloat(order.Field)
			if order.Direction == DESC {
				return b-a < 0
			}
			return a-b < 0
		})
		return sorted, nil
	}
}

// sliceReduce builds the pagination reduce stage selecting the window
// [offset, offset+limit) of the result set, clamped to its bounds
func sliceReduce(offset, limit int) ReduceFunc {
	return func(results []Result) ([]Result, error) {
		start := offset
		if start < 0 {
			start = 0
		}
		if start > len(results) {
			start = len(results)
		}
		end := start + limit
		if end > len(results) {
			end = len(results)
		}
		return results[start:end], nil
	}
}

// assembleJob builds the computation job for one run: candidate keys (or the
// whole bucket) as input, the map stage, then the ordering reduce only when an
// order is set and the slicing reduce only when limit > 0. With limit 0 no
// slicing is applied regardless of offset.
func assembleJob(bucket string, keys []string, mapFn MapFunc, order OrderBy, offset, limit int) Job {
	job := Job{
		Bucket: bucket,
		Keys:   keys,
		Map:    mapFn,
	}
	if order.Field != "" {
		job.Reduces = append(job.Reduces, orderReduce(order))
	}
	if limit > 0 {
		job.Reduces = append(job.Reduces, sliceReduce(offset, limit))
	}
	return job
}
