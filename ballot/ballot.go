// Package ballot implements the zk-any proof-type ballot: a deterministic
// weighted chooser over proof types keyed by block hash. Requests arriving
// with the zk_any pseudo proof type have their concrete backend drawn here
// at ingress time.
package ballot

import (
	"fmt"
	"math"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/taikoxyz/raiko-sub002/provertype"
)

// Ballot is an immutable mapping proof-type → probability in [0,1] with
// Σ probabilities ≤ 1, created once at startup and never mutated.
type Ballot struct {
	probabilities map[provertype.ProofType]float64
	order         []provertype.ProofType // ascending ProofType order, fixed at construction
}

// New validates probs and returns an immutable Ballot.
//
// Every probability must lie in [0,1] and their sum must not exceed 1;
// otherwise New returns an error.
func New(probs map[provertype.ProofType]float64) (*Ballot, error) {
	var total float64
	for pt, prob := range probs {
		if prob < 0.0 || prob > 1.0 {
			return nil, fmt.Errorf("ballot: invalid probability %v for proof type %s, must be between 0 and 1", prob, pt)
		}
		total += prob
	}
	if total > 1.0 {
		return nil, fmt.Errorf("ballot: total probability must be less than or equal to 1.0, but got %v", total)
	}

	order := make([]provertype.ProofType, 0, len(probs))
	for pt := range probs {
		order = append(order, pt)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	cp := make(map[provertype.ProofType]float64, len(probs))
	for k, v := range probs {
		cp[k] = v
	}
	return &Ballot{probabilities: cp, order: order}, nil
}

// Probabilities returns a copy of the ballot's mapping. The map itself has
// no order; Draw walks it in ascending ProofType order.
func (b *Ballot) Probabilities() map[provertype.ProofType]float64 {
	cp := make(map[provertype.ProofType]float64, len(b.probabilities))
	for k, v := range b.probabilities {
		cp[k] = v
	}
	return cp
}

// maxUint128F is the nearest float64 to 2^128 - 1, which is 2^128 itself:
// thresholds are computed against the full 128-bit seed space.
var maxUint128F = math.Pow(2, 128)

// Draw deterministically selects at most one proof type for blockHash.
//
// It treats the last 16 bytes of the hash as a little-endian u128 seed,
// then walks the mapping in total (ascending ProofType) order accumulating
// cumulative probability c; the first proof type whose
// round(c · 2¹²⁸) exceeds the seed wins. If the seed exceeds every
// cumulative threshold (i.e. falls in the uncovered 1 - Σp tail), Draw
// returns (zero, false).
//
// Same block hash, same result, on every host.
func (b *Ballot) Draw(blockHash common.Hash) (provertype.ProofType, bool) {
	seed := seedFromHash(blockHash)

	var cumulative float64
	for _, pt := range b.order {
		cumulative += b.probabilities[pt]
		threshold := cumulativeThreshold(cumulative)
		if seed.Cmp(threshold) < 0 {
			return pt, true
		}
	}
	return 0, false
}

// seedFromHash takes the last 16 bytes (least significant) of blockHash and
// interprets them as a little-endian u128.
func seedFromHash(blockHash common.Hash) *big.Int {
	last16 := blockHash[16:32]
	// big.Int.SetBytes wants big-endian, so reverse the little-endian
	// field: the hash's very last byte is the seed's most significant one.
	bigEndian := make([]byte, 16)
	for i, b := range last16 {
		bigEndian[15-i] = b
	}
	return new(big.Int).SetBytes(bigEndian)
}

// cumulativeThreshold computes round(cumulative * 2^128) as a big.Int.
func cumulativeThreshold(cumulative float64) *big.Int {
	rounded := math.Round(cumulative * maxUint128F)
	i, _ := big.NewFloat(rounded).Int(nil)
	if i == nil {
		i = new(big.Int)
	}
	return i
}
