package reqpool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/taikoxyz/raiko-sub002/provertype"
)

// Kind discriminates the three RequestKey variants.
type Kind uint8

const (
	KindSingleProof Kind = iota
	KindBatchProof
	KindAggregation
)

func (k Kind) String() string {
	switch k {
	case KindSingleProof:
		return "single"
	case KindBatchProof:
		return "batch"
	case KindAggregation:
		return "agg"
	default:
		return "unknown"
	}
}

// RequestKey identifies a unit of proving work. Equality and hashing are
// structural over all fields; Encode returns a stable textual form so that
// the same key produces the same bytes across processes. Go slices aren't
// comparable, so Encode is what backs map/set membership everywhere in
// this module instead of the key value itself.
type RequestKey interface {
	Kind() Kind
	ProofType() provertype.ProofType
	// Encode is the pool's on-disk key and this package's map key. Keys are
	// zero-padded so that lexicographic order over Encode matches numeric
	// order, keeping enumeration deterministic.
	Encode() string
}

// SingleProofRequestKey identifies a single L2 block proof.
type SingleProofRequestKey struct {
	ChainID     uint64
	BlockNumber uint64
	BlockHash   common.Hash
	Type        provertype.ProofType
	Prover      common.Address
}

func (k SingleProofRequestKey) Kind() Kind                      { return KindSingleProof }
func (k SingleProofRequestKey) ProofType() provertype.ProofType { return k.Type }
func (k SingleProofRequestKey) Encode() string {
	return fmt.Sprintf("%s/%020d/%020d/%s/%s/%s",
		KindSingleProof, k.ChainID, k.BlockNumber, k.BlockHash.Hex(), k.Type, k.Prover.Hex())
}

func (k SingleProofRequestKey) String() string { return k.Encode() }

// BatchProofRequestKey identifies a proof over a contiguous batch of L2
// blocks proposed together in a single L1 transaction.
type BatchProofRequestKey struct {
	ChainID                uint64
	BatchID                uint64
	L1InclusionBlockNumber uint64
	Type                   provertype.ProofType
	Prover                 common.Address
}

func (k BatchProofRequestKey) Kind() Kind                      { return KindBatchProof }
func (k BatchProofRequestKey) ProofType() provertype.ProofType { return k.Type }
func (k BatchProofRequestKey) Encode() string {
	return fmt.Sprintf("%s/%020d/%020d/%020d/%s/%s",
		KindBatchProof, k.ChainID, k.BatchID, k.L1InclusionBlockNumber, k.Type, k.Prover.Hex())
}

func (k BatchProofRequestKey) String() string { return k.Encode() }

// AggregationRequestKey identifies an aggregation of sub-proofs (batch or
// single proofs) keyed by proof type and the ordered list of sub-ids. The
// order is part of the key's identity: two aggregations over the same ids
// in different orders are different requests, because the aggregation
// circuit consumes proofs in a fixed order.
type AggregationRequestKey struct {
	Type  provertype.ProofType
	SubIDs []uint64
}

func (k AggregationRequestKey) Kind() Kind                      { return KindAggregation }
func (k AggregationRequestKey) ProofType() provertype.ProofType { return k.Type }
func (k AggregationRequestKey) Encode() string {
	ids := make([]string, len(k.SubIDs))
	for i, id := range k.SubIDs {
		ids[i] = fmt.Sprintf("%020d", id)
	}
	return fmt.Sprintf("%s/%s/%s", KindAggregation, k.Type, strings.Join(ids, "-"))
}

func (k AggregationRequestKey) String() string { return k.Encode() }

// SortKeys returns keys sorted by their Encode() form, the deterministic
// total order enumeration relies on.
func SortKeys(keys []RequestKey) []RequestKey {
	sorted := make([]RequestKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Encode() < sorted[j].Encode() })
	return sorted
}
