// Package rpcprovider defines the RPC/blob data surface the input builder
// consumes. Concrete providers (L1/L2 clients, blob archive fetchers) are
// out of scope; this package only fixes the interface, following the same
// pattern go-ethereum uses for its consensus.ChainHeaderReader family of
// narrow, consumer-defined interfaces.
package rpcprovider

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/types"
)

// AddressMap recovers each transaction's signer within a block.
type AddressMap map[common.Hash]common.Address

// Provider is the capability the input builder consumes to fetch L1/L2
// execution data. All methods are async and batched: the core
// never issues a per-block round trip when a range is known up front.
type Provider interface {
	// BatchBlocks fetches full blocks by number.
	BatchBlocks(ctx context.Context, numbers []uint64) ([]*types.Block, error)
	// BatchWitnesses fetches the execution witness (state trie nodes and
	// ancestor headers) needed to re-execute each block statelessly.
	BatchWitnesses(ctx context.Context, numbers []uint64) ([]*stateless.Witness, error)
	// BatchAccounts recovers the signer addresses for the given
	// per-block transaction senders, keyed by transaction hash.
	BatchAccounts(ctx context.Context, numbers []uint64, perBlock []AddressMap) ([]AddressMap, error)
}
