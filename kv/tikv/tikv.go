package tikv

import (
	"context"

	"github.com/autom8ter/multiq/errors"
	"github.com/autom8ter/multiq/kv"
	"github.com/autom8ter/multiq/kv/kvutil"
	"github.com/autom8ter/multiq/kv/registry"
	"github.com/spf13/cast"
	"github.com/tikv/client-go/v2/txnkv"
)

func init() {
	registry.Register("tikv", func(params map[string]interface{}) (kv.DB, error) {
		if params["pd_addr"] == nil {
			return nil, errors.New(errors.Validation, "'pd_addr' is a required parameter")
		}
		return open(cast.ToStringSlice(params["pd_addr"]))
	})
}

type tikvKV struct {
	db *txnkv.Client
}

func open(pdAddrs []string) (kv.DB, error) {
	if len(pdAddrs) == 0 {
		return nil, errors.New(errors.Validation, "empty pd address")
	}
	client, err := txnkv.NewClient(pdAddrs)
	if err != nil {
		return nil, err
	}
	return &tikvKV{
		db: client,
	}, nil
}

func (b *tikvKV) Tx(ctx context.Context, readOnly bool, fn func(tx kv.Tx) error) error {
	txn, err := b.db.Begin()
	if err != nil {
		return err
	}
	t := &tikvTx{txn: txn, readOnly: readOnly}
	if err := fn(t); err != nil {
		txn.Rollback()
		return err
	}
	if readOnly {
		txn.Rollback()
		return nil
	}
	return txn.Commit(ctx)
}

func (b *tikvKV) DropPrefix(ctx context.Context, prefix ...[]byte) error {
	for _, p := range prefix {
		if _, err := b.db.DeleteRange(ctx, p, kvutil.NextPrefix(p), 1); err != nil {
			return err
		}
	}
	return nil
}

func (b *tikvKV) Close(ctx context.Context) error {
	return b.db.Close()
}
