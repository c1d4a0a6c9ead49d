package multiq_test

import (
	"context"
	"testing"
	"time"

	"github.com/autom8ter/multiq"
	"github.com/autom8ter/multiq/errors"
	"github.com/autom8ter/multiq/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("missing provider fails validation", func(t *testing.T) {
		_, err := multiq.Open(context.Background(), multiq.Config{})
		assert.NotNil(t, err)
	})
	t.Run("unregistered provider", func(t *testing.T) {
		_, err := multiq.Open(context.Background(), multiq.Config{Provider: "bolt"})
		assert.NotNil(t, err)
	})
}

func TestParseConfig(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		c, err := multiq.ParseConfig([]byte(`
provider: badger
log_level: debug
params:
  storage_path: /tmp/multiq
`))
		require.Nil(t, err)
		assert.Equal(t, "badger", c.Provider)
		assert.Equal(t, "debug", c.LogLevel)
		assert.Equal(t, "/tmp/multiq", c.Params["storage_path"])
	})
	t.Run("json", func(t *testing.T) {
		c, err := multiq.ParseConfig([]byte(`{"provider": "tikv"}`))
		require.Nil(t, err)
		assert.Equal(t, "tikv", c.Provider)
	})
	t.Run("garbage", func(t *testing.T) {
		_, err := multiq.ParseConfig([]byte(`provider: [`))
		assert.NotNil(t, err)
	})
}

func TestDBCrud(t *testing.T) {
	require.Nil(t, testutil.TestDB(func(ctx context.Context, db *multiq.DB) {
		t.Run("put then get", func(t *testing.T) {
			doc := testutil.NewUserDoc()
			key, err := db.Put(ctx, "users", "u1", doc)
			require.Nil(t, err)
			assert.Equal(t, "u1", key)
			got, err := db.Get(ctx, "users", "u1")
			require.Nil(t, err)
			assert.Equal(t, doc.String(), got.String())
		})
		t.Run("empty key generates one", func(t *testing.T) {
			key, err := db.Put(ctx, "users", "", testutil.NewUserDoc())
			require.Nil(t, err)
			assert.NotEmpty(t, key)
			_, err = db.Get(ctx, "users", key)
			assert.Nil(t, err)
		})
		t.Run("get missing document", func(t *testing.T) {
			_, err := db.Get(ctx, "users", "nope")
			require.NotNil(t, err)
			assert.Equal(t, errors.NotFound, errors.Extract(err).Code)
		})
		t.Run("put rejects empty bucket", func(t *testing.T) {
			_, err := db.Put(ctx, "", "u1", testutil.NewUserDoc())
			assert.NotNil(t, err)
		})
		t.Run("put rejects nil document", func(t *testing.T) {
			_, err := db.Put(ctx, "users", "u1", nil)
			assert.NotNil(t, err)
		})
		t.Run("delete", func(t *testing.T) {
			_, err := db.Put(ctx, "users", "gone", testutil.NewUserDoc())
			require.Nil(t, err)
			require.Nil(t, db.Delete(ctx, "users", "gone"))
			_, err = db.Get(ctx, "users", "gone")
			assert.NotNil(t, err)
		})
	}))
}

func TestDBIndexes(t *testing.T) {
	require.Nil(t, testutil.TestDB(func(ctx context.Context, db *multiq.DB) {
		require.Nil(t, testutil.SeedUsers(ctx, db, "users"))

		t.Run("exact textual match", func(t *testing.T) {
			keys, err := db.IndexExact(ctx, "users", "name_bin", "Vishnu")
			require.Nil(t, err)
			assert.Equal(t, []string{"vishnu"}, keys)
		})
		t.Run("exact numeric match", func(t *testing.T) {
			keys, err := db.IndexExact(ctx, "users", "age_int", 25)
			require.Nil(t, err)
			assert.Equal(t, []string{"sree"}, keys)
		})
		t.Run("exact miss", func(t *testing.T) {
			keys, err := db.IndexExact(ctx, "users", "name_bin", "Nobody")
			require.Nil(t, err)
			assert.Empty(t, keys)
		})
		t.Run("numeric range is inclusive and ordered", func(t *testing.T) {
			keys, err := db.IndexRange(ctx, "users", "age_int", 25, 31)
			require.Nil(t, err)
			assert.Equal(t, []string{"sree", "vishnu"}, keys)
		})
		t.Run("range above the population", func(t *testing.T) {
			keys, err := db.IndexRange(ctx, "users", "age_int", 40, 100)
			require.Nil(t, err)
			assert.Empty(t, keys)
		})
		t.Run("negative lower bound still orders below positives", func(t *testing.T) {
			keys, err := db.IndexRange(ctx, "users", "age_int", -10, 26)
			require.Nil(t, err)
			assert.Equal(t, []string{"sree"}, keys)
		})
		t.Run("rewrite replaces stale entries", func(t *testing.T) {
			doc, err := multiq.NewDocumentFrom(map[string]any{"name": "Sreejith", "age": 26})
			require.Nil(t, err)
			_, err = db.Put(ctx, "users", "sree", doc,
				multiq.IndexFor("name", "Sreejith"),
				multiq.IndexFor("age", 26),
			)
			require.Nil(t, err)
			keys, err := db.IndexExact(ctx, "users", "age_int", 25)
			require.Nil(t, err)
			assert.Empty(t, keys)
			keys, err = db.IndexExact(ctx, "users", "age_int", 26)
			require.Nil(t, err)
			assert.Equal(t, []string{"sree"}, keys)
		})
		t.Run("delete removes entries", func(t *testing.T) {
			require.Nil(t, db.Delete(ctx, "users", "vishnu"))
			keys, err := db.IndexExact(ctx, "users", "name_bin", "Vishnu")
			require.Nil(t, err)
			assert.Empty(t, keys)
		})
	}))
}

func TestDBChangeStream(t *testing.T) {
	require.Nil(t, testutil.TestDB(func(ctx context.Context, db *multiq.DB) {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events := make(chan multiq.Event, 10)
		go func() {
			_ = db.ChangeStream(streamCtx, "users", func(e multiq.Event) (bool, error) {
				events <- e
				return true, nil
			})
		}()
		time.Sleep(100 * time.Millisecond)

		_, err := db.Put(ctx, "users", "sree", testutil.NewUserDoc())
		require.Nil(t, err)
		select {
		case e := <-events:
			assert.Equal(t, multiq.SetAction, e.Action)
			assert.Equal(t, "users", e.Bucket)
			assert.Equal(t, "sree", e.Key)
			assert.NotNil(t, e.Document)
			assert.NotZero(t, e.Timestamp)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for set event")
		}

		require.Nil(t, db.Delete(ctx, "users", "sree"))
		select {
		case e := <-events:
			assert.Equal(t, multiq.DeleteAction, e.Action)
			assert.Equal(t, "sree", e.Key)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for delete event")
		}
	}))
}

func TestDropBucket(t *testing.T) {
	require.Nil(t, testutil.TestDB(func(ctx context.Context, db *multiq.DB) {
		require.Nil(t, testutil.SeedUsers(ctx, db, "users"))
		require.Nil(t, testutil.SeedUsers(ctx, db, "admins"))
		require.Nil(t, db.DropBucket(ctx, "users"))

		_, err := db.Get(ctx, "users", "sree")
		assert.NotNil(t, err)
		keys, err := db.IndexExact(ctx, "users", "name_bin", "Vishnu")
		require.Nil(t, err)
		assert.Empty(t, keys)

		_, err = db.Get(ctx, "admins", "sree")
		assert.Nil(t, err)
	}))
}
