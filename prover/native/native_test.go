package native

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taikoxyz/raiko-sub002/inputbuilder"
	"github.com/taikoxyz/raiko-sub002/prover"
)

func TestRunRejectsForeignInput(t *testing.T) {
	p := New(params.TestChainConfig)
	_, err := p.Run(context.Background(), "not a guest input", nil, nil, nil)
	require.Error(t, err)
}

func TestAggregateCombinesPublicInputsInOrder(t *testing.T) {
	p := New(params.TestChainConfig)

	input := &inputbuilder.AggregationGuestInput{Proofs: []*prover.Proof{
		{PublicInput: []byte{0x01}},
		{PublicInput: []byte{0x02}},
	}}
	first, err := p.Aggregate(context.Background(), input, nil, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.PublicInput)

	// Swapping sub-proof order changes the aggregate commitment.
	swapped := &inputbuilder.AggregationGuestInput{Proofs: []*prover.Proof{
		input.Proofs[1], input.Proofs[0],
	}}
	second, err := p.Aggregate(context.Background(), swapped, nil, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.PublicInput, second.PublicInput)
}

func TestAggregateRejectsMissingSubProof(t *testing.T) {
	p := New(params.TestChainConfig)
	_, err := p.Aggregate(context.Background(), &inputbuilder.AggregationGuestInput{Proofs: []*prover.Proof{nil}}, nil, nil, nil)
	require.Error(t, err)
}
