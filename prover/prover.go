// Package prover defines the capability surface the request orchestration
// core consumes from a proof-generation backend. Backends themselves (TEE
// attestation protocols, zkVM guests, remote market clients) are out of
// scope; this package only fixes the contract.
package prover

import (
	"context"
	"fmt"

	"github.com/taikoxyz/raiko-sub002/provertype"
)

// Proof is an opaque container for whatever a backend produced. Any subset
// of the fields may be populated; the orchestration core never interprets
// the contents, only stores and forwards them.
type Proof struct {
	// Proof holds the raw proof bytes, hex-free (already decoded).
	Proof []byte `json:"proof,omitempty"`
	// Quote holds a TEE attestation quote, when applicable.
	Quote []byte `json:"quote,omitempty"`
	// PublicInput holds the digest of the public inputs the proof commits
	// to, when the backend exposes one separately from Proof.
	PublicInput []byte `json:"public_input,omitempty"`
	// KzgProof holds a KZG commitment/proof pair, when the backend proves
	// blob data-availability equivalence.
	KzgProof []byte `json:"kzg_proof,omitempty"`
	// ProvenanceID is the backend-supplied identifier for this proving job,
	// also written to the id store so a later Cancel can reach the backend.
	ProvenanceID string `json:"provenance_id,omitempty"`
}

// Key is the flattened identifier the id store is keyed by: a single proof
// within a chain, used to cancel remote proving jobs. It intentionally
// carries fewer fields than reqpool.RequestKey: aggregation keys have no
// single block number/hash, so the id store only ever addresses the
// underlying single/batch proofs a backend actually runs.
type Key struct {
	ChainID     uint64
	BlockNumber uint64
	BlockHash   [32]byte
	ProofType   provertype.ProofType
}

func (k Key) String() string {
	return fmt.Sprintf("%d-%d-%x-%s", k.ChainID, k.BlockNumber, k.BlockHash, k.ProofType)
}

// IDStore persists and retrieves backend-supplied job identifiers, keyed by
// Key, so that a later Cancel can reach the right remote job.
type IDStore interface {
	StoreID(ctx context.Context, key Key, id string) error
	ReadID(ctx context.Context, key Key) (string, error)
	RemoveID(ctx context.Context, key Key) error
}

// Input is the opaque guest input assembled by the input builder
// (inputbuilder.GuestInput); the prover package does not need its shape,
// only to pass it through.
type Input any

// Output is the opaque guest output (public input commitments) a backend
// may require alongside the input; left opaque for the same reason.
type Output any

// Config carries backend-specific proving options, taken verbatim from
// RequestEntity's free-form options map.
type Config map[string]any

// Backend is the capability set a single proof type registers. All methods
// are async and must return promptly when ctx is cancelled; that is the
// cooperative cancellation contract the worker loop relies on.
type Backend interface {
	// Run produces a proof for a single block or batch.
	Run(ctx context.Context, input Input, output Output, config Config, ids IDStore) (*Proof, error)
	// BatchRun produces a proof for a batch proof request; kept distinct
	// from Run because batch inputs differ in shape even though most
	// backends implement both with shared internals.
	BatchRun(ctx context.Context, input Input, output Output, config Config, ids IDStore) (*Proof, error)
	// Aggregate combines N prior proofs (in the order supplied) into a
	// single aggregation proof.
	Aggregate(ctx context.Context, input Input, output Output, config Config, ids IDStore) (*Proof, error)
	// Cancel asks the backend to interrupt whatever remote or local job is
	// associated with key, looking up the provenance id in ids.
	Cancel(ctx context.Context, key Key, ids IDStore) error
}

// Registry maps a ProofType discriminant to the Backend instance that
// serves it. It is assembled once at startup and never mutated afterwards
// (mirrors Ballot's immutability contract).
type Registry struct {
	backends map[provertype.ProofType]Backend
}

// NewRegistry builds an immutable registry from the given backend set.
func NewRegistry(backends map[provertype.ProofType]Backend) *Registry {
	cp := make(map[provertype.ProofType]Backend, len(backends))
	for k, v := range backends {
		cp[k] = v
	}
	return &Registry{backends: cp}
}

// Backend returns the backend registered for pt, or an error if pt is
// ProofTypeZkAny (which must be resolved by the ballot before dispatch) or
// nothing was registered for it.
func (r *Registry) Backend(pt provertype.ProofType) (Backend, error) {
	if !pt.IsDispatchable() {
		return nil, fmt.Errorf("prover: %s is not dispatchable directly, resolve via ballot first", pt)
	}
	b, ok := r.backends[pt]
	if !ok {
		return nil, fmt.Errorf("prover: no backend registered for proof type %s", pt)
	}
	return b, nil
}
