package inputbuilder

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/klauspost/compress/zlib"
)

// BlockManifest describes one L2 block of a proposal as committed on L1:
// the block-building parameters plus the raw transaction list. Field order
// is part of the wire format: the proposal is RLP-encoded field by field
// in exactly this order.
type BlockManifest struct {
	Timestamp         uint64
	Coinbase          common.Address
	AnchorBlockNumber uint64
	GasLimit          uint64
	Transactions      []*types.Transaction
}

// ProposalManifest is the decoded form of a batch proposal's tx data: the
// prover authentication bytes followed by the per-block manifests.
type ProposalManifest struct {
	ProverAuthBytes []byte
	Blocks          []*BlockManifest
}

// EncodeAndCompressProposal RLP-encodes proposal and zlib-compresses the
// result, producing the bytes a proposer posts as calldata or blob data.
func EncodeAndCompressProposal(proposal *ProposalManifest) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(proposal)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(encoded); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAndDecompressProposal is the inverse of EncodeAndCompressProposal:
// zlib-decompress, then RLP-decode into a ProposalManifest.
func DecodeAndDecompressProposal(compressed []byte) (*ProposalManifest, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: proposal is not valid zlib data: %w", err)
	}
	defer r.Close()
	encoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: proposal decompression failed: %w", err)
	}
	proposal := new(ProposalManifest)
	if err := rlp.DecodeBytes(encoded, proposal); err != nil {
		return nil, fmt.Errorf("inputbuilder: proposal RLP decode failed: %w", err)
	}
	return proposal, nil
}
