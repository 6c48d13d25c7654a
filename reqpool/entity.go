package reqpool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/provertype"
)

// RequestEntity is the payload stored alongside a RequestKey: everything
// needed to produce the proof once the worker dispatches the request.
type RequestEntity interface {
	Kind() Kind
	ProofType() provertype.ProofType
}

// SingleProofRequestEntity carries the parameters for a single-block proof.
type SingleProofRequestEntity struct {
	BlockNumber            uint64
	L1InclusionBlockNumber uint64
	Network                string
	L1Network              string
	Graffiti               common.Hash
	Prover                 common.Address
	Type                   provertype.ProofType
	BlobProofType          provertype.BlobProofType
	// ProverArgs carries free-form, prover-specific options (e.g. an SGX
	// instance id, a zkVM image id override).
	ProverArgs map[string]any
}

func (e *SingleProofRequestEntity) Kind() Kind                      { return KindSingleProof }
func (e *SingleProofRequestEntity) ProofType() provertype.ProofType { return e.Type }

// BatchProofRequestEntity carries the parameters for a proof over a
// contiguous batch of L2 blocks.
type BatchProofRequestEntity struct {
	BatchID                uint64
	L1InclusionBlockNumber uint64
	ChainID                uint64
	Network                string
	L1Network              string
	Graffiti               common.Hash
	Prover                 common.Address
	Type                   provertype.ProofType
	BlobProofType          provertype.BlobProofType
	ProverArgs             map[string]any
}

func (e *BatchProofRequestEntity) Kind() Kind                      { return KindBatchProof }
func (e *BatchProofRequestEntity) ProofType() provertype.ProofType { return e.Type }

// AggregationRequestEntity carries the ordered list of sub-ids an
// aggregation proof is built from and, once the worker has collected them,
// the ordered list of sub-proofs in the same order.
type AggregationRequestEntity struct {
	SubIDs     []uint64
	Type       provertype.ProofType
	ProverArgs map[string]any
	// Proofs is nil until every sub-request has reached Success; the actor
	// fills it in sub-id order when the last sub-proof succeeds, before it
	// enqueues the aggregation.
	Proofs []*prover.Proof
}

func (e *AggregationRequestEntity) Kind() Kind                      { return KindAggregation }
func (e *AggregationRequestEntity) ProofType() provertype.ProofType { return e.Type }

// Ready reports whether every sub-proof has been collected.
func (e *AggregationRequestEntity) Ready() bool {
	if len(e.Proofs) != len(e.SubIDs) {
		return false
	}
	for _, p := range e.Proofs {
		if p == nil {
			return false
		}
	}
	return true
}

// WithProofs returns a copy of e with Proofs set, used by the actor to
// avoid mutating the entity that's still referenced elsewhere (e.g. by a
// concurrently-reading pool_list_status caller).
func (e *AggregationRequestEntity) WithProofs(proofs []*prover.Proof) *AggregationRequestEntity {
	cp := *e
	cp.Proofs = proofs
	return &cp
}
