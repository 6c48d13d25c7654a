package inputbuilder

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/provertype"
	"github.com/taikoxyz/raiko-sub002/reqpool"
	"github.com/taikoxyz/raiko-sub002/rpcprovider"
)

type fakeProvider struct {
	blocks map[uint64]*types.Block
}

func (p *fakeProvider) BatchBlocks(_ context.Context, numbers []uint64) ([]*types.Block, error) {
	out := make([]*types.Block, 0, len(numbers))
	for _, n := range numbers {
		block, ok := p.blocks[n]
		if !ok {
			return nil, fmt.Errorf("no block %d", n)
		}
		out = append(out, block)
	}
	return out, nil
}

func (p *fakeProvider) BatchWitnesses(_ context.Context, numbers []uint64) ([]*stateless.Witness, error) {
	out := make([]*stateless.Witness, len(numbers))
	for i := range numbers {
		out[i] = &stateless.Witness{}
	}
	return out, nil
}

func (p *fakeProvider) BatchAccounts(_ context.Context, numbers []uint64, perBlock []rpcprovider.AddressMap) ([]rpcprovider.AddressMap, error) {
	return perBlock, nil
}

type fakeFetcher struct {
	proposal *ProposalData
	err      error
}

func (f *fakeFetcher) Proposal(context.Context, uint64, uint64) (*ProposalData, error) {
	return f.proposal, f.err
}

func testBlock(number uint64) *types.Block {
	return types.NewBlockWithHeader(&types.Header{Number: new(big.Int).SetUint64(number)})
}

func newTestBuilder(t *testing.T, proposal *ProposalData) *Builder {
	t.Helper()
	blocks := map[uint64]*types.Block{}
	for _, n := range proposal.BlockNumbers {
		blocks[n] = testBlock(n)
	}
	return New(&fakeProvider{blocks: blocks}, &fakeFetcher{proposal: proposal}, 167000)
}

func TestBuildBatchFromCalldata(t *testing.T) {
	calldata, err := EncodeAndCompressProposal(testProposal())
	require.NoError(t, err)

	proposal := &ProposalData{
		L1Header:     &types.Header{Number: big.NewInt(500)},
		Calldata:     calldata,
		BlockNumbers: []uint64{100, 101},
	}
	builder := newTestBuilder(t, proposal)

	input, err := builder.Build(context.Background(), &reqpool.BatchProofRequestEntity{
		BatchID:                42,
		L1InclusionBlockNumber: 500,
		Type:                   provertype.ProofTypeNative,
	})
	require.NoError(t, err)

	guest, ok := input.(*GuestInput)
	require.True(t, ok)
	assert.Equal(t, uint64(167000), guest.ChainID)
	assert.Equal(t, uint64(42), guest.Taiko.BatchID)
	assert.Equal(t, calldata, guest.Taiko.TxDataFromCalldata)
	require.Len(t, guest.Witnesses, 2)
	assert.Equal(t, uint64(100), guest.Witnesses[0].Block.NumberU64())
	assert.Equal(t, uint64(101), guest.Witnesses[1].Block.NumberU64())
	require.NotNil(t, guest.Manifest)
	assert.Len(t, guest.Manifest.Blocks, 1)
}

func TestBuildBatchFromBlobRequiresCommitments(t *testing.T) {
	compressed, err := EncodeAndCompressProposal(&ProposalManifest{ProverAuthBytes: []byte{0xaa}})
	require.NoError(t, err)
	require.LessOrEqual(t, len(compressed), 27)

	blob := smallBlob(t, compressed)
	proposal := &ProposalData{
		L1Header:     &types.Header{Number: big.NewInt(500)},
		Blobs:        [][]byte{blob},
		BlockNumbers: []uint64{100},
	}
	builder := newTestBuilder(t, proposal)

	// No commitments supplied: KzgVersionedHash verification must refuse
	// before any decoding happens.
	_, err = builder.Build(context.Background(), &reqpool.BatchProofRequestEntity{
		BatchID:       42,
		BlobProofType: provertype.BlobProofTypeKzgVersionedHash,
	})
	require.Error(t, err)
}

func TestBuildSingle(t *testing.T) {
	builder := New(&fakeProvider{blocks: map[uint64]*types.Block{7: testBlock(7)}}, nil, 167000)

	input, err := builder.Build(context.Background(), &reqpool.SingleProofRequestEntity{BlockNumber: 7})
	require.NoError(t, err)
	guest, ok := input.(*GuestInput)
	require.True(t, ok)
	require.Len(t, guest.Witnesses, 1)
	assert.Equal(t, uint64(7), guest.Witnesses[0].Block.NumberU64())
}

func TestBuildAggregation(t *testing.T) {
	builder := New(nil, nil, 167000)

	notReady := &reqpool.AggregationRequestEntity{SubIDs: []uint64{1, 2}}
	_, err := builder.Build(context.Background(), notReady)
	require.Error(t, err)

	p1, p2 := &prover.Proof{Proof: []byte{0x01}}, &prover.Proof{Proof: []byte{0x02}}
	ready := notReady.WithProofs([]*prover.Proof{p1, p2})
	input, err := builder.Build(context.Background(), ready)
	require.NoError(t, err)
	agg, ok := input.(*AggregationGuestInput)
	require.True(t, ok)
	assert.Equal(t, []*prover.Proof{p1, p2}, agg.Proofs)
}

func TestBuildBatchPropagatesFetchError(t *testing.T) {
	builder := New(nil, &fakeFetcher{err: fmt.Errorf("l1 unreachable")}, 167000)
	_, err := builder.Build(context.Background(), &reqpool.BatchProofRequestEntity{BatchID: 1})
	require.Error(t, err)
}
