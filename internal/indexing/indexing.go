package indexing

import (
	"bytes"

	"github.com/autom8ter/multiq/util"
)

var sep = []byte("\x00")

// Prefix builds keys within a bucket's keyspace. Key segments are joined with a
// null byte; index values are encoded with util.EncodeIndexValue so that byte
// order matches value order.
type Prefix struct {
	parts [][]byte
}

// Documents returns the prefix holding a bucket's documents
func Documents(bucket string) Prefix {
	return Prefix{parts: [][]byte{
		[]byte("docs"),
		[]byte(bucket),
	}}
}

// Index returns the prefix holding a bucket's entries for the named secondary index
func Index(bucket, index string) Prefix {
	return Prefix{parts: [][]byte{
		[]byte("index"),
		[]byte(bucket),
		[]byte(index),
	}}
}

// Indexes returns the prefix holding all of a bucket's index entries
func Indexes(bucket string) Prefix {
	return Prefix{parts: [][]byte{
		[]byte("index"),
		[]byte(bucket),
	}}
}

// Entries returns the prefix holding per-document index entry records
func Entries(bucket string) Prefix {
	return Prefix{parts: [][]byte{
		[]byte("entries"),
		[]byte(bucket),
	}}
}

// Value appends an encoded index value segment
func (p Prefix) Value(value any) Prefix {
	return Prefix{parts: append(append([][]byte{}, p.parts...), util.EncodeIndexValue(value))}
}

// ID appends a document key segment
func (p Prefix) ID(docKey string) Prefix {
	return Prefix{parts: append(append([][]byte{}, p.parts...), []byte(docKey))}
}

// Path returns the full key for the accumulated segments
func (p Prefix) Path() []byte {
	return bytes.Join(p.parts, sep)
}

// Scope returns the iteration prefix covering all keys nested under the accumulated segments
func (p Prefix) Scope() []byte {
	return append(p.Path(), sep...)
}
