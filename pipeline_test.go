package multiq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ageResults(t *testing.T, ages ...int) []Result {
	var results []Result
	for _, age := range ages {
		doc, err := NewDocumentFrom(map[string]any{"age": age})
		require.Nil(t, err)
		results = append(results, Result{Key: doc.GetString("age"), Document: doc})
	}
	return results
}

func resultAges(results []Result) []float64 {
	var ages []float64
	for _, r := range results {
		ages = append(ages, r.Document.GetFloat("age"))
	}
	return ages
}

func TestOrderReduce(t *testing.T) {
	input := ageResults(t, 31, 25, 47)
	t.Run("ascending", func(t *testing.T) {
		out, err := orderReduce(OrderBy{Field: "age", Direction: ASC})(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{25, 31, 47}, resultAges(out))
	})
	t.Run("descending", func(t *testing.T) {
		out, err := orderReduce(OrderBy{Field: "age", Direction: DESC})(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{47, 31, 25}, resultAges(out))
	})
	t.Run("input is not mutated", func(t *testing.T) {
		_, err := orderReduce(OrderBy{Field: "age", Direction: ASC})(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{31, 25, 47}, resultAges(input))
	})
}

func TestSliceReduce(t *testing.T) {
	input := ageResults(t, 1, 2, 3, 4, 5)
	t.Run("selects the window", func(t *testing.T) {
		out, err := sliceReduce(1, 2)(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{2, 3}, resultAges(out))
	})
	t.Run("clamps past the end", func(t *testing.T) {
		out, err := sliceReduce(3, 10)(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{4, 5}, resultAges(out))
	})
	t.Run("offset beyond the end yields nothing", func(t *testing.T) {
		out, err := sliceReduce(10, 1)(input)
		assert.Nil(t, err)
		assert.Empty(t, out)
	})
	t.Run("negative offset clamps to the start", func(t *testing.T) {
		out, err := sliceReduce(-3, 2)(input)
		assert.Nil(t, err)
		assert.Equal(t, []float64{1, 2}, resultAges(out))
	})
}

func TestAssembleJob(t *testing.T) {
	p, err := compilePredicate(nil)
	require.Nil(t, err)
	mapFn := predicateMap(p)

	t.Run("map stage only", func(t *testing.T) {
		job := assembleJob("users", nil, mapFn, OrderBy{}, 0, 0)
		assert.Equal(t, "users", job.Bucket)
		assert.NotNil(t, job.Map)
		assert.Len(t, job.Reduces, 0)
	})
	t.Run("limit zero never slices regardless of offset", func(t *testing.T) {
		job := assembleJob("users", nil, mapFn, OrderBy{}, 5, 0)
		assert.Len(t, job.Reduces, 0)
	})
	t.Run("order adds a reduce", func(t *testing.T) {
		job := assembleJob("users", nil, mapFn, OrderBy{Field: "age", Direction: ASC}, 0, 0)
		assert.Len(t, job.Reduces, 1)
	})
	t.Run("order then slice", func(t *testing.T) {
		job := assembleJob("users", []string{"a"}, mapFn, OrderBy{Field: "age", Direction: ASC}, 1, 1)
		assert.Len(t, job.Reduces, 2)
		assert.Equal(t, []string{"a"}, job.Keys)
	})
}

func TestPredicateMap(t *testing.T) {
	p, err := compilePredicate([]Filter{{Field: "age", Op: OpLt, Value: 50}})
	require.Nil(t, err)
	mapFn := predicateMap(p)

	young, err := NewDocumentFrom(map[string]any{"age": 25})
	require.Nil(t, err)
	old, err := NewDocumentFrom(map[string]any{"age": 75})
	require.Nil(t, err)

	out, err := mapFn("young", young)
	assert.Nil(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "young", out[0].Key)

	out, err = mapFn("old", old)
	assert.Nil(t, err)
	assert.Empty(t, out)
}
