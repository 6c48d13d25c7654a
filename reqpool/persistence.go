package reqpool

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/provertype"
)

// wireEntity is the on-the-wire discriminated union for RequestEntity.
// Go has no native sum-type serialization, so the tagging is hand-rolled,
// the same way go-ethereum encodes its transaction envelope types.
type wireEntity struct {
	Kind string `json:"kind"`

	// single + batch
	BlockNumber            uint64                   `json:"blockNumber,omitempty"`
	L1InclusionBlockNumber uint64                   `json:"l1InclusionBlockNumber,omitempty"`
	Network                string                   `json:"network,omitempty"`
	L1Network              string                   `json:"l1Network,omitempty"`
	Graffiti               common.Hash              `json:"graffiti,omitempty"`
	Prover                 common.Address           `json:"prover,omitempty"`
	Type                   provertype.ProofType     `json:"proofType"`
	BlobProofType          provertype.BlobProofType `json:"blobProofType,omitempty"`
	ProverArgs             map[string]any           `json:"proverArgs,omitempty"`

	// batch only
	BatchID uint64 `json:"batchId,omitempty"`
	ChainID uint64 `json:"chainId,omitempty"`

	// aggregation only
	SubIDs []uint64        `json:"subIds,omitempty"`
	Proofs []*prover.Proof `json:"proofs,omitempty"`
}

func entityToWire(e RequestEntity) (wireEntity, error) {
	switch v := e.(type) {
	case *SingleProofRequestEntity:
		return wireEntity{
			Kind:                   "single",
			BlockNumber:            v.BlockNumber,
			L1InclusionBlockNumber: v.L1InclusionBlockNumber,
			Network:                v.Network,
			L1Network:              v.L1Network,
			Graffiti:               v.Graffiti,
			Prover:                 v.Prover,
			Type:                   v.Type,
			BlobProofType:          v.BlobProofType,
			ProverArgs:             v.ProverArgs,
		}, nil
	case *BatchProofRequestEntity:
		return wireEntity{
			Kind:                   "batch",
			BatchID:                v.BatchID,
			L1InclusionBlockNumber: v.L1InclusionBlockNumber,
			ChainID:                v.ChainID,
			Network:                v.Network,
			L1Network:              v.L1Network,
			Graffiti:               v.Graffiti,
			Prover:                 v.Prover,
			Type:                   v.Type,
			BlobProofType:          v.BlobProofType,
			ProverArgs:             v.ProverArgs,
		}, nil
	case *AggregationRequestEntity:
		return wireEntity{
			Kind:       "agg",
			Type:       v.Type,
			SubIDs:     v.SubIDs,
			Proofs:     v.Proofs,
			ProverArgs: v.ProverArgs,
		}, nil
	default:
		return wireEntity{}, fmt.Errorf("reqpool: unknown RequestEntity implementation %T", e)
	}
}

func wireToEntity(w wireEntity) (RequestEntity, error) {
	switch w.Kind {
	case "single":
		return &SingleProofRequestEntity{
			BlockNumber:            w.BlockNumber,
			L1InclusionBlockNumber: w.L1InclusionBlockNumber,
			Network:                w.Network,
			L1Network:              w.L1Network,
			Graffiti:               w.Graffiti,
			Prover:                 w.Prover,
			Type:                   w.Type,
			BlobProofType:          w.BlobProofType,
			ProverArgs:             w.ProverArgs,
		}, nil
	case "batch":
		return &BatchProofRequestEntity{
			BatchID:                w.BatchID,
			L1InclusionBlockNumber: w.L1InclusionBlockNumber,
			ChainID:                w.ChainID,
			Network:                w.Network,
			L1Network:              w.L1Network,
			Graffiti:               w.Graffiti,
			Prover:                 w.Prover,
			Type:                   w.Type,
			BlobProofType:          w.BlobProofType,
			ProverArgs:             w.ProverArgs,
		}, nil
	case "agg":
		return &AggregationRequestEntity{
			Type:       w.Type,
			SubIDs:     w.SubIDs,
			Proofs:     w.Proofs,
			ProverArgs: w.ProverArgs,
		}, nil
	default:
		return nil, fmt.Errorf("reqpool: unknown wire entity kind %q", w.Kind)
	}
}

// StoredValue is the {entity, status} tuple persisted per key.
type StoredValue struct {
	Entity RequestEntity
	Status StatusWithContext
}

type wireValue struct {
	Entity wireEntity        `json:"entity"`
	Status StatusWithContext `json:"status"`
}

// MarshalJSON implements the stable {entity, status} persisted layout.
func (v StoredValue) MarshalJSON() ([]byte, error) {
	we, err := entityToWire(v.Entity)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Entity: we, Status: v.Status})
}

// UnmarshalJSON parses the persisted layout back into a StoredValue.
func (v *StoredValue) UnmarshalJSON(data []byte) error {
	var wv wireValue
	if err := json.Unmarshal(data, &wv); err != nil {
		return err
	}
	entity, err := wireToEntity(wv.Entity)
	if err != nil {
		return err
	}
	v.Entity = entity
	v.Status = wv.Status
	return nil
}
