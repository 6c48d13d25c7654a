// Package inputbuilder turns a batch proof request into the GuestInput a
// prover backend consumes: it fetches the proposal's tx data from L1,
// verifies blob commitments, decodes the proposal manifest, collects the
// per-block execution witnesses, and computes the protocol instance hash
// binding the proof to the batch.
package inputbuilder

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
	"github.com/ethereum/go-ethereum/log"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/provertype"
	"github.com/taikoxyz/raiko-sub002/reqpool"
	"github.com/taikoxyz/raiko-sub002/rpcprovider"
)

// ProverData identifies the prover a proof is assigned to, plus the
// caller-chosen graffiti echoed into the public inputs.
type ProverData struct {
	Prover   common.Address `json:"prover"`
	Graffiti common.Hash    `json:"graffiti"`
}

// TaikoManifest is the batch-level portion of a guest input: the proposal's
// identity on L1 and its raw tx data, before and after blob decoding.
type TaikoManifest struct {
	BatchID            uint64                   `json:"batch_id"`
	L1Header           *types.Header            `json:"l1_header"`
	TxDataFromCalldata []byte                   `json:"tx_data_from_calldata"`
	TxDataFromBlob     [][]byte                 `json:"tx_data_from_blob"`
	BlobCommitments    []kzg4844.Commitment     `json:"blob_commitments,omitempty"`
	BlobProofs         []kzg4844.Proof          `json:"blob_proofs,omitempty"`
	BlobProofType      provertype.BlobProofType `json:"blob_proof_type"`
	ProverData         ProverData               `json:"prover_data"`
}

// StatelessInput is everything needed to re-execute one block without a
// state database: the block itself, its execution witness, and the
// recovered transaction signers.
type StatelessInput struct {
	Block    *types.Block           `json:"block"`
	Witness  *stateless.Witness     `json:"witness"`
	Accounts rpcprovider.AddressMap `json:"accounts"`
}

// GuestInput bundles the Taiko manifest with the per-block witnesses; it is
// the complete input handed to a prover backend.
type GuestInput struct {
	ChainID   uint64            `json:"chain_id"`
	Taiko     TaikoManifest     `json:"taiko"`
	Witnesses []StatelessInput  `json:"witnesses"`
	Manifest  *ProposalManifest `json:"-"`
}

// AggregationGuestInput is the input for an aggregation job: the sub-proofs
// in their original sub-id order.
type AggregationGuestInput struct {
	Proofs []*prover.Proof `json:"proofs"`
}

// ProposalData is what the L1 side knows about one batch proposal: the
// inclusion block's header, the raw tx data (calldata and/or blobs with
// their KZG commitments), and the L2 block range the proposal covers. A
// ProposalFetcher reads it from the inbox contract's proposal event.
type ProposalData struct {
	L1Header     *types.Header
	Proposer     common.Address
	Calldata     []byte
	Blobs        [][]byte
	Commitments  []kzg4844.Commitment
	Proofs       []kzg4844.Proof
	BlockNumbers []uint64
}

// ProposalFetcher resolves a batch id to its proposal data. Implementations
// wrap an L1 client and blob source; out of scope here.
type ProposalFetcher interface {
	Proposal(ctx context.Context, batchID, l1InclusionBlockNumber uint64) (*ProposalData, error)
}

// Builder assembles guest inputs from RPC data. It is stateless and safe
// for concurrent use by the worker's child tasks.
type Builder struct {
	provider  rpcprovider.Provider
	proposals ProposalFetcher
	chainID   uint64
}

// New constructs a Builder for chainID over the given data sources.
func New(provider rpcprovider.Provider, proposals ProposalFetcher, chainID uint64) *Builder {
	return &Builder{provider: provider, proposals: proposals, chainID: chainID}
}

// Build assembles the prover input for entity. Batch and single proof
// requests produce a *GuestInput; aggregation requests produce an
// *AggregationGuestInput from the already-collected sub-proofs.
func (b *Builder) Build(ctx context.Context, entity reqpool.RequestEntity) (prover.Input, error) {
	switch e := entity.(type) {
	case *reqpool.BatchProofRequestEntity:
		return b.buildBatch(ctx, e)
	case *reqpool.SingleProofRequestEntity:
		return b.buildSingle(ctx, e)
	case *reqpool.AggregationRequestEntity:
		if !e.Ready() {
			return nil, fmt.Errorf("inputbuilder: aggregation input requested before all sub-proofs were collected")
		}
		return &AggregationGuestInput{Proofs: e.Proofs}, nil
	default:
		return nil, fmt.Errorf("inputbuilder: unknown request entity type %T", entity)
	}
}

// buildBatch implements the batch path: fetch the proposal, verify blob
// usage, decode the manifest, then collect witnesses for the covered
// blocks.
func (b *Builder) buildBatch(ctx context.Context, e *reqpool.BatchProofRequestEntity) (*GuestInput, error) {
	proposal, err := b.proposals.Proposal(ctx, e.BatchID, e.L1InclusionBlockNumber)
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: fetching proposal for batch %d: %w", e.BatchID, err)
	}

	txData := proposal.Calldata
	if len(proposal.Blobs) > 0 {
		if err := VerifyBlobUsage(proposal.Blobs, proposal.Commitments, proposal.Proofs, e.BlobProofType); err != nil {
			return nil, err
		}
		txData, err = DecodeTxData(proposal.Blobs)
		if err != nil {
			return nil, err
		}
	}

	manifest, err := DecodeAndDecompressProposal(txData)
	if err != nil {
		return nil, err
	}
	log.Debug("inputbuilder: decoded proposal manifest",
		"batch", e.BatchID, "blocks", len(manifest.Blocks), "blobs", len(proposal.Blobs))

	witnesses, err := b.collectWitnesses(ctx, proposal.BlockNumbers)
	if err != nil {
		return nil, err
	}

	blobData := make([][]byte, 0, len(proposal.Blobs))
	for _, blob := range proposal.Blobs {
		blobData = append(blobData, DecodeBlobData(blob))
	}

	return &GuestInput{
		ChainID: b.chainID,
		Taiko: TaikoManifest{
			BatchID:            e.BatchID,
			L1Header:           proposal.L1Header,
			TxDataFromCalldata: proposal.Calldata,
			TxDataFromBlob:     blobData,
			BlobCommitments:    proposal.Commitments,
			BlobProofs:         proposal.Proofs,
			BlobProofType:      e.BlobProofType,
			ProverData:         ProverData{Prover: e.Prover, Graffiti: e.Graffiti},
		},
		Witnesses: witnesses,
		Manifest:  manifest,
	}, nil
}

// buildSingle is the degenerate one-block case: no proposal data, just the
// block's own witness.
func (b *Builder) buildSingle(ctx context.Context, e *reqpool.SingleProofRequestEntity) (*GuestInput, error) {
	witnesses, err := b.collectWitnesses(ctx, []uint64{e.BlockNumber})
	if err != nil {
		return nil, err
	}
	return &GuestInput{
		ChainID: b.chainID,
		Taiko: TaikoManifest{
			BlobProofType: e.BlobProofType,
			ProverData:    ProverData{Prover: e.Prover, Graffiti: e.Graffiti},
		},
		Witnesses: witnesses,
	}, nil
}

// collectWitnesses batch-fetches blocks, witnesses, and recovered signers
// for numbers, zipping them into per-block StatelessInputs.
func (b *Builder) collectWitnesses(ctx context.Context, numbers []uint64) ([]StatelessInput, error) {
	if len(numbers) == 0 {
		return nil, fmt.Errorf("inputbuilder: proposal covers no blocks")
	}
	blocks, err := b.provider.BatchBlocks(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: fetching blocks: %w", err)
	}
	witnesses, err := b.provider.BatchWitnesses(ctx, numbers)
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: fetching witnesses: %w", err)
	}
	if len(blocks) != len(numbers) || len(witnesses) != len(numbers) {
		return nil, fmt.Errorf("inputbuilder: provider returned %d blocks and %d witnesses for %d numbers",
			len(blocks), len(witnesses), len(numbers))
	}

	senders := make([]rpcprovider.AddressMap, len(blocks))
	for i, block := range blocks {
		senders[i] = make(rpcprovider.AddressMap, len(block.Transactions()))
		for _, tx := range block.Transactions() {
			senders[i][tx.Hash()] = common.Address{}
		}
	}
	accounts, err := b.provider.BatchAccounts(ctx, numbers, senders)
	if err != nil {
		return nil, fmt.Errorf("inputbuilder: recovering signers: %w", err)
	}
	if len(accounts) != len(numbers) {
		return nil, fmt.Errorf("inputbuilder: provider returned %d account maps for %d numbers", len(accounts), len(numbers))
	}

	inputs := make([]StatelessInput, len(numbers))
	for i := range numbers {
		inputs[i] = StatelessInput{Block: blocks[i], Witness: witnesses[i], Accounts: accounts[i]}
	}
	return inputs, nil
}
