// Package native implements the native re-execution backend: it produces
// no cryptographic attestation, just re-runs every block in the guest
// input through the stateless validator and commits to the protocol
// instance hash. Used for sanity checks and local testing.
package native

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/taikoxyz/raiko-sub002/inputbuilder"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/validator"
)

// Prover re-executes blocks statelessly instead of proving them. It
// implements prover.Backend.
type Prover struct {
	chainConfig *params.ChainConfig
}

// New returns a native backend validating against chainConfig.
func New(chainConfig *params.ChainConfig) *Prover {
	return &Prover{chainConfig: chainConfig}
}

// Run re-executes every block in the guest input and returns a proof whose
// public input is the protocol instance hash. There are no proof bytes:
// native "proving" is trust-by-re-execution.
func (p *Prover) Run(ctx context.Context, input prover.Input, _ prover.Output, _ prover.Config, _ prover.IDStore) (*prover.Proof, error) {
	guest, ok := input.(*inputbuilder.GuestInput)
	if !ok {
		return nil, fmt.Errorf("native: expected *inputbuilder.GuestInput, got %T", input)
	}
	signer := types.LatestSigner(p.chainConfig)
	for _, w := range guest.Witnesses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blockHash, err := validator.Validate(validator.Input{
			Block:       w.Block,
			Witness:     w.Witness,
			Signer:      signer,
			Signers:     w.Accounts,
			ChainConfig: p.chainConfig,
			VMConfig:    vm.Config{},
		})
		if err != nil {
			return nil, err
		}
		log.Debug("native: block re-executed", "number", w.Block.NumberU64(), "hash", blockHash)
	}

	pi, err := inputbuilder.NewProtocolInstance(guest, guest.Taiko.ProverData.Prover, guest.Taiko.ProverData.Prover, nil)
	if err != nil {
		return nil, err
	}
	return &prover.Proof{PublicInput: pi.InstanceHash().Bytes()}, nil
}

// BatchRun is identical to Run: the guest input already carries every block
// of the batch.
func (p *Prover) BatchRun(ctx context.Context, input prover.Input, output prover.Output, config prover.Config, ids prover.IDStore) (*prover.Proof, error) {
	return p.Run(ctx, input, output, config, ids)
}

// Aggregate hashes the sub-proofs' public inputs together in order.
func (p *Prover) Aggregate(_ context.Context, input prover.Input, _ prover.Output, _ prover.Config, _ prover.IDStore) (*prover.Proof, error) {
	agg, ok := input.(*inputbuilder.AggregationGuestInput)
	if !ok {
		return nil, fmt.Errorf("native: expected *inputbuilder.AggregationGuestInput, got %T", input)
	}
	var combined []byte
	for _, sub := range agg.Proofs {
		if sub == nil {
			return nil, fmt.Errorf("native: aggregation input carries a missing sub-proof")
		}
		combined = append(combined, sub.PublicInput...)
	}
	return &prover.Proof{PublicInput: crypto.Keccak256(combined)}, nil
}

// Cancel is a no-op: native runs are local and torn down by context
// cancellation alone.
func (p *Prover) Cancel(context.Context, prover.Key, prover.IDStore) error { return nil }

var _ prover.Backend = (*Prover)(nil)
