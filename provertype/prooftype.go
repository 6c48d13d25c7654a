// Package provertype defines the proof-type and blob-proof-type
// discriminants shared across the request pool, the ballot, and the
// prover backend registry.
package provertype

import (
	"encoding/json"
	"fmt"
)

// ProofType identifies the backend used to produce a proof: native
// re-execution, a TEE enclave, or a specific zkVM. It is also the dispatch
// key into the prover backend registry (prover.Registry).
type ProofType uint8

const (
	// ProofTypeNative re-executes the block in-process without any
	// cryptographic attestation; used for sanity checks and local testing.
	ProofTypeNative ProofType = iota
	// ProofTypeSgx produces an Intel SGX enclave attestation.
	ProofTypeSgx
	// ProofTypeSp1 produces a Succinct SP1 zkVM proof.
	ProofTypeSp1
	// ProofTypeRisc0 produces a RISC Zero zkVM proof.
	ProofTypeRisc0
	// ProofTypeSgxGeth is the SGX producer variant paired with the geth
	// execution path rather than the reth one.
	ProofTypeSgxGeth
	// ProofTypeZkAny is a pseudo proof-type: its concrete backend is drawn
	// from the Ballot at ingress time and never reaches the dispatch
	// registry directly.
	ProofTypeZkAny
)

var proofTypeNames = map[ProofType]string{
	ProofTypeNative:  "native",
	ProofTypeSgx:     "sgx",
	ProofTypeSp1:     "sp1",
	ProofTypeRisc0:   "risc0",
	ProofTypeSgxGeth: "sgxgeth",
	ProofTypeZkAny:   "zk_any",
}

var proofTypeValues = func() map[string]ProofType {
	m := make(map[string]ProofType, len(proofTypeNames))
	for k, v := range proofTypeNames {
		m[v] = k
	}
	return m
}()

// String implements fmt.Stringer so ProofType is log-friendly.
func (p ProofType) String() string {
	if name, ok := proofTypeNames[p]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(p))
}

// ParseProofType resolves the canonical lower-case name of a proof type,
// as used in configuration and the pool's persisted form.
func ParseProofType(name string) (ProofType, error) {
	v, ok := proofTypeValues[name]
	if !ok {
		return 0, fmt.Errorf("provertype: unknown proof type %q", name)
	}
	return v, nil
}

// IsDispatchable reports whether the proof type can be handed directly to a
// registered backend. ProofTypeZkAny must be resolved via Ballot.Draw first.
func (p ProofType) IsDispatchable() bool {
	return p != ProofTypeZkAny
}

// MarshalJSON renders the proof type using its canonical lower-case name so
// that pool values are stable across process restarts.
func (p ProofType) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON parses the canonical lower-case name back into a ProofType.
func (p *ProofType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseProofType(name)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// BlobProofType selects how blob data-availability is proved for a batch.
type BlobProofType uint8

const (
	// BlobProofTypeKzgVersionedHash validates the KZG commitment digest
	// (the commitment count must match the blob count).
	BlobProofTypeKzgVersionedHash BlobProofType = iota
	// BlobProofTypeProofOfEquivalence validates a Fiat-Shamir-derived KZG
	// evaluation proof (the proof count must match the blob count).
	BlobProofTypeProofOfEquivalence
)

func (b BlobProofType) String() string {
	switch b {
	case BlobProofTypeKzgVersionedHash:
		return "kzg_versioned_hash"
	case BlobProofTypeProofOfEquivalence:
		return "proof_of_equivalence"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(b))
	}
}

func (b BlobProofType) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BlobProofType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "kzg_versioned_hash":
		*b = BlobProofTypeKzgVersionedHash
	case "proof_of_equivalence":
		*b = BlobProofTypeProofOfEquivalence
	default:
		return fmt.Errorf("provertype: unknown blob proof type %q", name)
	}
	return nil
}
