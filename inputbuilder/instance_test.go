package inputbuilder

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstanceHashDeterministic(t *testing.T) {
	pi := &ProtocolInstance{
		Transition: Transition{
			ParentHash: common.HexToHash("0x01"),
			BlockHash:  common.HexToHash("0x02"),
			StateRoot:  common.HexToHash("0x03"),
		},
		BatchMetadata: BatchMetadata{
			InfoHash: common.HexToHash("0x04"),
			Proposer: common.HexToAddress("0x05"),
			BatchID:  42,
		},
		Prover:  common.HexToAddress("0x06"),
		ChainID: 167000,
	}

	first := pi.InstanceHash()
	assert.NotEqual(t, common.Hash{}, first)
	assert.Equal(t, first, pi.InstanceHash())
}

func TestInstanceHashBindsEveryField(t *testing.T) {
	base := ProtocolInstance{ChainID: 1, BatchMetadata: BatchMetadata{BatchID: 1}}
	baseHash := base.InstanceHash()

	perturbed := []ProtocolInstance{
		func() ProtocolInstance { pi := base; pi.Transition.ParentHash = common.HexToHash("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.Transition.BlockHash = common.HexToHash("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.Transition.StateRoot = common.HexToHash("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.BatchMetadata.InfoHash = common.HexToHash("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.BatchMetadata.Proposer = common.HexToAddress("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.BatchMetadata.BatchID = 2; return pi }(),
		func() ProtocolInstance { pi := base; pi.Prover = common.HexToAddress("0x01"); return pi }(),
		func() ProtocolInstance { pi := base; pi.ChainID = 2; return pi }(),
	}
	seen := map[common.Hash]bool{baseHash: true}
	for i, pi := range perturbed {
		h := pi.InstanceHash()
		assert.False(t, seen[h], "perturbation %d did not change the instance hash", i)
		seen[h] = true
	}
}

func TestTxsHash(t *testing.T) {
	empty := TxsHash(common.Hash{}, nil)
	assert.NotEqual(t, common.Hash{}, empty)

	withBlob := TxsHash(common.Hash{}, []common.Hash{{0x01}})
	assert.NotEqual(t, empty, withBlob)

	// Order of blob hashes is part of the digest.
	ab := TxsHash(common.Hash{}, []common.Hash{{0x01}, {0x02}})
	ba := TxsHash(common.Hash{}, []common.Hash{{0x02}, {0x01}})
	assert.NotEqual(t, ab, ba)
}

func TestNewProtocolInstanceRequiresBlocks(t *testing.T) {
	_, err := NewProtocolInstance(&GuestInput{}, common.Address{}, common.Address{}, nil)
	require.Error(t, err)
}
