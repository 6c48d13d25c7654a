package inputbuilder

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Transition is the state transition a batch proof attests to: from the
// first block's parent to the last block's hash and state root.
type Transition struct {
	ParentHash common.Hash `json:"parent_hash"`
	BlockHash  common.Hash `json:"block_hash"`
	StateRoot  common.Hash `json:"state_root"`
}

// BatchMetadata binds the transition to the proposal that ordered it.
type BatchMetadata struct {
	InfoHash   common.Hash    `json:"info_hash"`
	Proposer   common.Address `json:"proposer"`
	BatchID    uint64         `json:"batch_id"`
	ProposedAt uint64         `json:"proposed_at"`
}

// ProtocolInstance is the set of public inputs that bind a proof to a
// specific batch, prover, and chain. Its hash is what the guest commits to
// and what the on-chain verifier checks.
type ProtocolInstance struct {
	Transition    Transition     `json:"transition"`
	BatchMetadata BatchMetadata  `json:"batch_metadata"`
	Prover        common.Address `json:"prover"`
	ChainID       uint64         `json:"chain_id"`
	Verifier      common.Address `json:"verifier_address"`
}

// InstanceHash computes the keccak256 of the ABI encoding of
// (parent_hash, block_hash, state_root, info_hash, proposer, batch_id,
// prover, chain_id): eight static 32-byte words.
func (pi *ProtocolInstance) InstanceHash() common.Hash {
	data := make([]byte, 0, 8*32)
	data = append(data, pi.Transition.ParentHash.Bytes()...)
	data = append(data, pi.Transition.BlockHash.Bytes()...)
	data = append(data, pi.Transition.StateRoot.Bytes()...)
	data = append(data, pi.BatchMetadata.InfoHash.Bytes()...)
	data = append(data, abiWordAddress(pi.BatchMetadata.Proposer)...)
	data = append(data, abiWordUint64(pi.BatchMetadata.BatchID)...)
	data = append(data, abiWordAddress(pi.Prover)...)
	data = append(data, abiWordUint64(pi.ChainID)...)
	return crypto.Keccak256Hash(data)
}

// TxsHash computes the info hash over the calldata tx-list hash and the
// batch's blob versioned hashes: keccak256 of the ABI encoding of
// (bytes32, bytes32[]) with the leading tuple offset stripped.
func TxsHash(txListHash common.Hash, blobHashes []common.Hash) common.Hash {
	data := make([]byte, 0, (3+len(blobHashes))*32)
	data = append(data, txListHash.Bytes()...)
	data = append(data, abiWordUint64(0x40)...) // offset of the hash array
	data = append(data, abiWordUint64(uint64(len(blobHashes)))...)
	for _, h := range blobHashes {
		data = append(data, h.Bytes()...)
	}
	return crypto.Keccak256Hash(data)
}

func abiWordAddress(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

func abiWordUint64(v uint64) []byte {
	word := make([]byte, 32)
	binary.BigEndian.PutUint64(word[24:], v)
	return word
}

// NewProtocolInstance derives the protocol instance for a built guest
// input: the transition spans the executed blocks, the info hash covers the
// tx data, and prover/chain identify who proves what.
func NewProtocolInstance(input *GuestInput, proposer common.Address, verifier common.Address, blobHashes []common.Hash) (*ProtocolInstance, error) {
	if len(input.Witnesses) == 0 {
		return nil, fmt.Errorf("inputbuilder: guest input carries no blocks")
	}
	first := input.Witnesses[0].Block
	last := input.Witnesses[len(input.Witnesses)-1].Block

	txListHash := crypto.Keccak256Hash(input.Taiko.TxDataFromCalldata)
	return &ProtocolInstance{
		Transition: Transition{
			ParentHash: first.ParentHash(),
			BlockHash:  last.Hash(),
			StateRoot:  last.Root(),
		},
		BatchMetadata: BatchMetadata{
			InfoHash: TxsHash(txListHash, blobHashes),
			Proposer: proposer,
			BatchID:  input.Taiko.BatchID,
		},
		Prover:   input.Taiko.ProverData.Prover,
		ChainID:  input.ChainID,
		Verifier: verifier,
	}, nil
}
