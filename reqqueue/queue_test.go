package reqqueue

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taikoxyz/raiko-sub002/provertype"
	"github.com/taikoxyz/raiko-sub002/reqpool"
)

func lowPriorityKey(blockNumber uint64) reqpool.RequestKey {
	return reqpool.SingleProofRequestKey{
		ChainID:     1,
		BlockNumber: blockNumber,
		BlockHash:   common.Hash{1},
		Type:        provertype.ProofTypeNative,
		Prover:      common.Address{},
	}
}

func highPriorityKey(subIDs ...uint64) reqpool.RequestKey {
	return reqpool.AggregationRequestKey{Type: provertype.ProofTypeNative, SubIDs: subIDs}
}

func singleEntity(blockNumber uint64) reqpool.RequestEntity {
	return &reqpool.SingleProofRequestEntity{BlockNumber: blockNumber, Type: provertype.ProofTypeNative}
}

func aggEntity(subIDs ...uint64) reqpool.RequestEntity {
	return &reqpool.AggregationRequestEntity{SubIDs: subIDs, Type: provertype.ProofTypeNative}
}

// TestComplexWorkflow interleaves pushes, pops, and completions across
// tiers and checks the priority and in-flight accounting throughout.
func TestComplexWorkflow(t *testing.T) {
	q := New()

	low1, low2 := lowPriorityKey(1), lowPriorityKey(2)
	high1, high2 := highPriorityKey(100), highPriorityKey(200)

	q.AddPending(low1, singleEntity(1))
	q.AddPending(high1, aggEntity(100))
	q.AddPending(low2, singleEntity(2))
	q.AddPending(high2, aggEntity(200))

	agg, batch, preflight, _ := q.Len()
	assert.Equal(t, 2, agg)
	assert.Equal(t, 0, batch)
	assert.Equal(t, 2, preflight)

	key, _, ok := q.TryNext()
	require.True(t, ok)
	assert.Equal(t, high1.Encode(), key.Encode())

	key, _, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, high2.Encode(), key.Encode())

	key, _, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, low1.Encode(), key.Encode())

	q.Complete(high1)
	assert.False(t, q.Contains(high1))
	_, _, _, inFlight := q.Len()
	assert.Equal(t, 2, inFlight) // high2 and low1 still working

	key, _, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, low2.Encode(), key.Encode())

	q.Complete(high2)
	q.Complete(low1)
	q.Complete(low2)

	agg, batch, preflight, inFlight = q.Len()
	assert.Zero(t, agg)
	assert.Zero(t, batch)
	assert.Zero(t, preflight)
	assert.Zero(t, inFlight)
}

// TestDeduplication: pushing the same key twice leaves exactly one
// entry.
func TestDeduplication(t *testing.T) {
	q := New()
	k := lowPriorityKey(1)
	q.AddPending(k, singleEntity(1))
	q.AddPending(k, singleEntity(1))

	_, _, preflight, _ := q.Len()
	assert.Equal(t, 1, preflight)
}

// TestCompleteEvictsWaitingKey: completing (e.g. cancelling) a key that
// was never popped removes it from its FIFO too, so a later re-add cannot
// produce a stale duplicate dispatch.
func TestCompleteEvictsWaitingKey(t *testing.T) {
	q := New()
	k := lowPriorityKey(1)
	q.AddPending(k, singleEntity(1))
	q.Complete(k)

	_, _, preflight, inFlight := q.Len()
	assert.Zero(t, preflight)
	assert.Zero(t, inFlight)
	assert.False(t, q.Contains(k))

	q.AddPending(k, singleEntity(1))
	key, _, ok := q.TryNext()
	require.True(t, ok)
	assert.Equal(t, k.Encode(), key.Encode())
	_, _, ok = q.TryNext()
	assert.False(t, ok, "only the re-added entry may be popped")
}

// TestPriorityOrder: aggregation
// first, batch second, low third, regardless of push order.
func TestPriorityOrder(t *testing.T) {
	q := New()
	low := lowPriorityKey(1)
	batchKey := reqpool.BatchProofRequestKey{ChainID: 1, BatchID: 7, Type: provertype.ProofTypeNative}
	aggKey := highPriorityKey(7)

	q.AddPending(low, singleEntity(1))
	q.AddPending(batchKey, &reqpool.BatchProofRequestEntity{BatchID: 7, Type: provertype.ProofTypeNative})
	q.AddPending(aggKey, aggEntity(7))

	key, _, ok := q.TryNext()
	require.True(t, ok)
	assert.Equal(t, aggKey.Encode(), key.Encode())

	key, _, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, batchKey.Encode(), key.Encode())

	key, _, ok = q.TryNext()
	require.True(t, ok)
	assert.Equal(t, low.Encode(), key.Encode())
}
