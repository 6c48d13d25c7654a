package reqpool

import (
	"context"

	"github.com/taikoxyz/raiko-sub002/prover"
)

// IDStoreAdapter adapts an IDStorePool's string-keyed id namespace to the
// prover.IDStore interface backends consume, using prover.Key's flattened
// (chain-id, block-number, block-hash, proof-type) encoding as the key.
type IDStoreAdapter struct {
	Pool IDStorePool
}

func (a IDStoreAdapter) StoreID(ctx context.Context, key prover.Key, id string) error {
	return a.Pool.StoreID(ctx, key.String(), id)
}

func (a IDStoreAdapter) ReadID(ctx context.Context, key prover.Key) (string, error) {
	return a.Pool.ReadID(ctx, key.String())
}

func (a IDStoreAdapter) RemoveID(ctx context.Context, key prover.Key) error {
	return a.Pool.RemoveID(ctx, key.String())
}

var _ prover.IDStore = IDStoreAdapter{}
