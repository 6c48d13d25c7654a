package inputbuilder

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProposal() *ProposalManifest {
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		To:       &common.Address{0x02},
		Value:    big.NewInt(1000),
		Gas:      21000,
		GasPrice: big.NewInt(1),
	})
	return &ProposalManifest{
		ProverAuthBytes: []byte{1, 2, 3, 4},
		Blocks: []*BlockManifest{
			{
				Timestamp:         1234567890,
				Coinbase:          common.Address{0x01},
				AnchorBlockNumber: 100,
				GasLimit:          30_000_000,
				Transactions:      []*types.Transaction{tx},
			},
		},
	}
}

func TestProposalEncodeDecodeRoundtrip(t *testing.T) {
	original := testProposal()

	encoded, err := EncodeAndCompressProposal(original)
	require.NoError(t, err)

	decoded, err := DecodeAndDecompressProposal(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.ProverAuthBytes, decoded.ProverAuthBytes)
	require.Len(t, decoded.Blocks, 1)
	assert.Equal(t, original.Blocks[0].Timestamp, decoded.Blocks[0].Timestamp)
	assert.Equal(t, original.Blocks[0].Coinbase, decoded.Blocks[0].Coinbase)
	assert.Equal(t, original.Blocks[0].AnchorBlockNumber, decoded.Blocks[0].AnchorBlockNumber)
	assert.Equal(t, original.Blocks[0].GasLimit, decoded.Blocks[0].GasLimit)
	require.Len(t, decoded.Blocks[0].Transactions, 1)
	assert.Equal(t, original.Blocks[0].Transactions[0].Hash(), decoded.Blocks[0].Transactions[0].Hash())
}

func TestDecodeProposalRejectsGarbage(t *testing.T) {
	_, err := DecodeAndDecompressProposal([]byte{0xde, 0xad, 0xbe, 0xef})
	require.Error(t, err)
}

func TestDecodeProposalRejectsTruncatedStream(t *testing.T) {
	// A valid compressed manifest whose zlib stream is cut short.
	compressed, err := EncodeAndCompressProposal(&ProposalManifest{})
	require.NoError(t, err)
	// Truncating the stream breaks decompression.
	_, err = DecodeAndDecompressProposal(compressed[:len(compressed)-2])
	require.Error(t, err)
}
