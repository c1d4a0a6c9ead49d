package badger_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/autom8ter/multiq/kv"
	"github.com/autom8ter/multiq/kv/registry"
	"github.com/stretchr/testify/assert"
)

func Test(t *testing.T) {
	ctx := context.Background()
	db, err := registry.Open("badger", map[string]interface{}{})
	assert.Nil(t, err)
	defer db.Close(ctx)

	data := map[string]string{}
	for i := 0; i < 10; i++ {
		data[fmt.Sprintf("key.%d", i)] = fmt.Sprint(i)
	}
	t.Run("set", func(t *testing.T) {
		assert.Nil(t, db.Tx(ctx, false, func(tx kv.Tx) error {
			for k, v := range data {
				assert.Nil(t, tx.Set(ctx, []byte(k), []byte(v)))
			}
			return nil
		}))
	})
	t.Run("get", func(t *testing.T) {
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			for k, v := range data {
				val, err := tx.Get(ctx, []byte(k))
				assert.Nil(t, err)
				assert.EqualValues(t, v, string(val))
			}
			return nil
		}))
	})
	t.Run("get missing key", func(t *testing.T) {
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			val, err := tx.Get(ctx, []byte("key.missing"))
			assert.Nil(t, err)
			assert.Nil(t, val)
			return nil
		}))
	})
	t.Run("iterate prefix", func(t *testing.T) {
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{
				Prefix: []byte("key."),
			})
			assert.Nil(t, err)
			defer iter.Close()
			count := 0
			for iter.Valid() {
				_, ok := data[string(iter.Key())]
				assert.True(t, ok)
				count++
				assert.Nil(t, iter.Next())
			}
			assert.Equal(t, len(data), count)
			return nil
		}))
	})
	t.Run("iterate upper bound", func(t *testing.T) {
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{
				Prefix:     []byte("key."),
				Seek:       []byte("key.2"),
				UpperBound: []byte("key.5"),
			})
			assert.Nil(t, err)
			defer iter.Close()
			var keys []string
			for iter.Valid() {
				keys = append(keys, string(iter.Key()))
				assert.Nil(t, iter.Next())
			}
			assert.Equal(t, []string{"key.2", "key.3", "key.4", "key.5"}, keys)
			return nil
		}))
	})
	t.Run("rollback on error", func(t *testing.T) {
		assert.NotNil(t, db.Tx(ctx, false, func(tx kv.Tx) error {
			assert.Nil(t, tx.Set(ctx, []byte("key.rollback"), []byte("x")))
			return fmt.Errorf("fail")
		}))
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			val, err := tx.Get(ctx, []byte("key.rollback"))
			assert.Nil(t, err)
			assert.Nil(t, val)
			return nil
		}))
	})
	t.Run("write after snapshot is visible to later readers", func(t *testing.T) {
		key := []byte("versioned")
		assert.Nil(t, db.Tx(ctx, false, func(tx kv.Tx) error {
			return tx.Set(ctx, key, []byte("v1"))
		}))
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			// commit v2 while this read snapshot is open
			if err := db.Tx(ctx, false, func(wtx kv.Tx) error {
				return wtx.Set(ctx, key, []byte("v2"))
			}); err != nil {
				return err
			}
			val, err := tx.Get(ctx, key)
			assert.Nil(t, err)
			assert.Equal(t, "v1", string(val))
			return nil
		}))
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			val, err := tx.Get(ctx, key)
			assert.Nil(t, err)
			assert.Equal(t, "v2", string(val))
			return nil
		}))
	})
	t.Run("drop prefix", func(t *testing.T) {
		assert.Nil(t, db.DropPrefix(ctx, []byte("key.")))
		assert.Nil(t, db.Tx(ctx, true, func(tx kv.Tx) error {
			iter, err := tx.NewIterator(kv.IterOpts{Prefix: []byte("key.")})
			assert.Nil(t, err)
			defer iter.Close()
			assert.False(t, iter.Valid())
			return nil
		}))
	})
}
