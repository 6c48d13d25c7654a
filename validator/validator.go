// Package validator implements stateless block re-execution: it wraps
// core.ExecuteStateless rather than reimplementing trie-backed EVM
// execution, layering ancestor-chain and signer checks on top so that a
// malformed witness is rejected with a precise error before any EVM work
// starts.
package validator

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/taikoxyz/raiko-sub002/rpcprovider"
)

// ErrorKind classifies validation failures.
type ErrorKind uint8

const (
	KindSignerRecovery ErrorKind = iota
	KindHeaderDeserializationFailed
	KindMissingAncestorHeader
	KindInvalidAncestorChain
	KindConsensusValidation
	KindStatelessExecutionFailed
	KindPostStateRootMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case KindSignerRecovery:
		return "signer_recovery"
	case KindHeaderDeserializationFailed:
		return "header_deserialization_failed"
	case KindMissingAncestorHeader:
		return "missing_ancestor_header"
	case KindInvalidAncestorChain:
		return "invalid_ancestor_chain"
	case KindConsensusValidation:
		return "consensus_validation"
	case KindStatelessExecutionFailed:
		return "stateless_execution_failed"
	case KindPostStateRootMismatch:
		return "post_state_root_mismatch"
	default:
		return "unknown"
	}
}

// Error is returned by Validate, carrying the Got/Expected roots for
// KindPostStateRootMismatch.
type Error struct {
	Kind     ErrorKind
	Got      common.Hash
	Expected common.Hash
	Msg      string
}

func (e *Error) Error() string {
	if e.Kind == KindPostStateRootMismatch {
		return fmt.Sprintf("%s: got %s, expected %s", e.Kind, e.Got, e.Expected)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func newErr(kind ErrorKind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Input bundles everything the stateless validator needs: the block, its
// execution witness, the recovered signers, the chain configuration, and
// the EVM knobs.
type Input struct {
	Block       *types.Block
	Witness     *stateless.Witness
	Signer      types.Signer
	Signers     rpcprovider.AddressMap
	ChainConfig *params.ChainConfig
	VMConfig    vm.Config
}

// Validate re-executes the block against its witness and returns
// hash(block) on success.
func Validate(in Input) (common.Hash, error) {
	if in.Block == nil || in.Witness == nil {
		return common.Hash{}, newErr(KindHeaderDeserializationFailed, "nil block or witness")
	}

	if err := verifySigners(in.Block, in.Signer, in.Signers); err != nil {
		return common.Hash{}, err
	}

	ancestors, err := sortedAncestors(in.Witness)
	if err != nil {
		return common.Hash{}, err
	}
	if len(ancestors) == 0 {
		return common.Hash{}, newErr(KindMissingAncestorHeader, "witness carries no ancestor headers")
	}
	if err := verifyAncestorChain(ancestors); err != nil {
		return common.Hash{}, err
	}

	gotStateRoot, _, err := core.ExecuteStateless(in.ChainConfig, in.VMConfig, in.Block, in.Witness)
	if err != nil {
		return common.Hash{}, newErr(KindStatelessExecutionFailed, err.Error())
	}

	if gotStateRoot != in.Block.Root() {
		return common.Hash{}, &Error{Kind: KindPostStateRootMismatch, Got: gotStateRoot, Expected: in.Block.Root()}
	}

	return in.Block.Hash(), nil
}

// verifySigners recovers each transaction's sender with the chain's
// signer and, where the caller supplied an expected address, checks it
// matches.
func verifySigners(block *types.Block, signer types.Signer, want rpcprovider.AddressMap) error {
	if signer == nil {
		return nil
	}
	for _, tx := range block.Transactions() {
		addr, err := types.Sender(signer, tx)
		if err != nil {
			return newErr(KindSignerRecovery, err.Error())
		}
		if want == nil {
			continue
		}
		if expected, ok := want[tx.Hash()]; ok && expected != addr {
			return newErr(KindSignerRecovery, fmt.Sprintf("recovered signer %s does not match expected %s for tx %s", addr, expected, tx.Hash()))
		}
	}
	return nil
}

// sortedAncestors sorts witness.Headers by block number ascending.
func sortedAncestors(witness *stateless.Witness) ([]*types.Header, error) {
	headers := make([]*types.Header, len(witness.Headers))
	copy(headers, witness.Headers)
	for _, h := range headers {
		if h == nil {
			return nil, newErr(KindHeaderDeserializationFailed, "nil ancestor header")
		}
	}
	sort.Slice(headers, func(i, j int) bool { return headers[i].Number.Cmp(headers[j].Number) < 0 })
	return headers, nil
}

// verifyAncestorChain checks that each parent/child pair is contiguous.
func verifyAncestorChain(ancestors []*types.Header) error {
	for i := 1; i < len(ancestors); i++ {
		parent, child := ancestors[i-1], ancestors[i]
		if child.ParentHash != parent.Hash() {
			return newErr(KindInvalidAncestorChain, fmt.Sprintf("header %d's parent hash does not match header %d's hash", child.Number, parent.Number))
		}
		if child.Number.Uint64() != parent.Number.Uint64()+1 {
			return newErr(KindInvalidAncestorChain, fmt.Sprintf("header %d does not immediately follow header %d", child.Number, parent.Number))
		}
	}
	return nil
}

// PreStateRoot returns the state root to build the sparse trie from: the
// most recent (highest-numbered) ancestor header's root.
func PreStateRoot(witness *stateless.Witness) (common.Hash, error) {
	ancestors, err := sortedAncestors(witness)
	if err != nil {
		return common.Hash{}, err
	}
	if len(ancestors) == 0 {
		return common.Hash{}, newErr(KindMissingAncestorHeader, "witness carries no ancestor headers")
	}
	return ancestors[len(ancestors)-1].Root, nil
}
