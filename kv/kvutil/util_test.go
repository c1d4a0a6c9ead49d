package kvutil_test

import (
	"bytes"
	"testing"

	"github.com/autom8ter/multiq/kv/kvutil"
	"github.com/stretchr/testify/assert"
)

func TestKVUtil(t *testing.T) {
	const input = "hello"
	next := kvutil.NextPrefix([]byte(input))
	assert.Equal(t, 1, bytes.Compare(next, []byte(input)))

	next = kvutil.NextPrefix([]byte{0xFF, 0xFF})
	assert.Empty(t, next)
}
