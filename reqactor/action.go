package reqactor

import (
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/reqpool"
)

// ActionKind discriminates the two-action protocol exposed to external
// callers. A third, unexported kind carries the worker's
// completion reports through the same serialized loop.
type ActionKind uint8

const (
	// ActionProve is idempotent registration: absent → Registered, a
	// terminal key may re-open (Failed/Cancelled → Registered) or reply
	// idempotently (Success → Success).
	ActionProve ActionKind = iota
	// ActionCancel attempts cancellation of key, recursing into an
	// aggregation's sub-requests first.
	ActionCancel
	// actionComplete is how the worker reports a WorkInProgress → terminal
	// transition back to the actor; it is never
	// constructed by external callers, only by Actor.Complete/Actor.Fail.
	actionComplete
)

// Action is a single message in the actor's bounded action channel.
type Action struct {
	Kind   ActionKind
	Key    reqpool.RequestKey
	Entity reqpool.RequestEntity // set for ActionProve, nil otherwise

	result *completionResult // set for actionComplete only
}

type completionResult struct {
	proof *prover.Proof
	err   string
}

// Prove builds an ActionProve action.
func Prove(key reqpool.RequestKey, entity reqpool.RequestEntity) Action {
	return Action{Kind: ActionProve, Key: key, Entity: entity}
}

// Cancel builds an ActionCancel action.
func Cancel(key reqpool.RequestKey) Action {
	return Action{Kind: ActionCancel, Key: key}
}
