package validator

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// headerChain builds n contiguous headers starting at number start, each
// child's ParentHash linked to its parent's hash.
func headerChain(start uint64, n int) []*types.Header {
	headers := make([]*types.Header, n)
	parentHash := common.Hash{}
	for i := 0; i < n; i++ {
		headers[i] = &types.Header{
			Number:     new(big.Int).SetUint64(start + uint64(i)),
			ParentHash: parentHash,
			Root:       common.HexToHash("0x0a"),
		}
		parentHash = headers[i].Hash()
	}
	return headers
}

func witnessWith(headers []*types.Header) *stateless.Witness {
	return &stateless.Witness{Headers: headers}
}

func asKind(t *testing.T, err error) ErrorKind {
	t.Helper()
	verr, ok := err.(*Error)
	require.True(t, ok, "expected *validator.Error, got %T: %v", err, err)
	return verr.Kind
}

func TestValidateNilInputs(t *testing.T) {
	_, err := Validate(Input{})
	require.Error(t, err)
	assert.Equal(t, KindHeaderDeserializationFailed, asKind(t, err))
}

func TestValidateMissingAncestors(t *testing.T) {
	block := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(5)})
	_, err := Validate(Input{Block: block, Witness: witnessWith(nil), ChainConfig: params.TestChainConfig})
	require.Error(t, err)
	assert.Equal(t, KindMissingAncestorHeader, asKind(t, err))
}

func TestValidateBrokenAncestorChain(t *testing.T) {
	headers := headerChain(1, 3)
	headers[2].ParentHash = common.HexToHash("0xdead")

	block := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(4)})
	_, err := Validate(Input{Block: block, Witness: witnessWith(headers), ChainConfig: params.TestChainConfig})
	require.Error(t, err)
	assert.Equal(t, KindInvalidAncestorChain, asKind(t, err))
}

func TestValidateNonConsecutiveAncestors(t *testing.T) {
	a := &types.Header{Number: big.NewInt(1)}
	// Number skips 2, but the hash link is kept intact: the gap alone must
	// be rejected.
	b := &types.Header{Number: big.NewInt(3), ParentHash: a.Hash()}

	block := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(4)})
	_, err := Validate(Input{Block: block, Witness: witnessWith([]*types.Header{a, b}), ChainConfig: params.TestChainConfig})
	require.Error(t, err)
	assert.Equal(t, KindInvalidAncestorChain, asKind(t, err))
}

func TestValidateSignerRecoveryFailure(t *testing.T) {
	// An unsigned transaction has no recoverable sender.
	tx := types.NewTx(&types.LegacyTx{Nonce: 0, Gas: 21000, GasPrice: big.NewInt(1), To: &common.Address{}})
	body := &types.Body{Transactions: []*types.Transaction{tx}}
	block := types.NewBlock(&types.Header{Number: big.NewInt(4)}, body, nil, trie.NewStackTrie(nil))

	_, err := Validate(Input{
		Block:       block,
		Witness:     witnessWith(headerChain(1, 3)),
		Signer:      types.LatestSigner(params.TestChainConfig),
		ChainConfig: params.TestChainConfig,
	})
	require.Error(t, err)
	assert.Equal(t, KindSignerRecovery, asKind(t, err))
}

// TestPreStateRoot: the trie is anchored at the most recent ancestor's
// root, regardless of the order headers arrive in.
func TestPreStateRoot(t *testing.T) {
	headers := headerChain(1, 3)
	headers[2].Root = common.HexToHash("0xbeef")

	// Shuffle so the highest-numbered header is not last.
	shuffled := []*types.Header{headers[2], headers[0], headers[1]}
	root, err := PreStateRoot(witnessWith(shuffled))
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xbeef"), root)
}

func TestPreStateRootNoAncestors(t *testing.T) {
	_, err := PreStateRoot(witnessWith(nil))
	require.Error(t, err)
	assert.Equal(t, KindMissingAncestorHeader, asKind(t, err))
}

func TestErrorStringsCarryRoots(t *testing.T) {
	err := &Error{Kind: KindPostStateRootMismatch, Got: common.HexToHash("0x01"), Expected: common.Hash{}}
	assert.Contains(t, err.Error(), "post_state_root_mismatch")
	assert.Contains(t, err.Error(), common.HexToHash("0x01").String())
}
