// Package reqactor implements the actor: the single serial owner of the
// request pool and priority queue. A goroutine reads from a handful of
// channels in one select loop; every mutation of queue state happens
// inside that loop, so no additional locking is needed around it.
package reqactor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/taikoxyz/raiko-sub002/errs"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/provertype"
	"github.com/taikoxyz/raiko-sub002/reqpool"
	"github.com/taikoxyz/raiko-sub002/reqqueue"
)

// SubEntityBuilder deterministically constructs the RequestKey/RequestEntity
// pair for one sub-proof of an aggregation, given its sub-id and the
// aggregation's proof type. Assembling a batch proof request from nothing
// but a batch id needs chain configuration, which this package does not
// own, so the builder is injected.
type SubEntityBuilder func(subID uint64, proofType provertype.ProofType) (reqpool.RequestKey, reqpool.RequestEntity)

type actionEnvelope struct {
	action Action
	reply  chan actionReply
}

type actionReply struct {
	status reqpool.StatusWithContext
	err    error
}

type nextEnvelope struct {
	reply chan nextReply
}

type nextReply struct {
	key    reqpool.RequestKey
	entity reqpool.RequestEntity
	ok     bool
}

// Actor owns the pool and queue and serializes every mutation of both
// through a single goroutine (Run). All exported methods are safe to call
// concurrently; they hand off to Run over a channel.
type Actor struct {
	pool      reqpool.Pool
	queue     *reqqueue.Queue
	subEntity SubEntityBuilder
	now       func() time.Time

	actionCh chan actionEnvelope
	nextCh   chan nextEnvelope
	wakeCh   chan struct{}

	isPaused      atomic.Bool
	pauseObserved chan struct{}
	unpauseCh     chan struct{}

	// aggByKey and subParents track in-flight aggregation expansion:
	// aggByKey lets a completed sub-proof's actionComplete handler find the
	// concrete aggregation key to re-check for readiness, and subParents
	// maps a sub-key's Encode() back to the aggregation(s) waiting on it.
	aggByKey   map[string]reqpool.RequestKey
	subParents map[string][]string
}

// New constructs an Actor over pool, with subEntity used to expand
// aggregation sub-ids into concrete sub-requests (nil is only valid if the
// deployment never submits aggregation requests).
func New(pool reqpool.Pool, subEntity SubEntityBuilder) *Actor {
	return &Actor{
		pool:          pool,
		queue:         reqqueue.New(),
		subEntity:     subEntity,
		now:           time.Now,
		actionCh:      make(chan actionEnvelope, 256),
		nextCh:        make(chan nextEnvelope),
		wakeCh:        make(chan struct{}, 1),
		pauseObserved: make(chan struct{}, 1),
		unpauseCh:     make(chan struct{}, 1),
		aggByKey:      map[string]reqpool.RequestKey{},
		subParents:    map[string][]string{},
	}
}

// Run processes actions until ctx is cancelled. It must run on exactly one
// goroutine for the whole lifetime of the Actor.
func (a *Actor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-a.actionCh:
			status, err := a.handle(ctx, env.action)
			env.reply <- actionReply{status: status, err: err}
		case env := <-a.nextCh:
			key, entity, ok := a.queue.TryNext()
			env.reply <- nextReply{key: key, entity: entity, ok: ok}
		}
	}
}

// Act submits action and waits for the actor to process it. The reply is
// always the resulting StatusWithContext or a transport error.
func (a *Actor) Act(ctx context.Context, action Action) (reqpool.StatusWithContext, error) {
	reply := make(chan actionReply, 1)
	select {
	case a.actionCh <- actionEnvelope{action: action, reply: reply}:
	case <-ctx.Done():
		return reqpool.StatusWithContext{}, ctx.Err()
	default:
		return reqpool.StatusWithContext{}, errs.CapacityFull
	}
	select {
	case r := <-reply:
		return r.status, r.err
	case <-ctx.Done():
		return reqpool.StatusWithContext{}, errs.HandleDropped
	}
}

// Complete reports that key's backend run produced proof, clearing the
// queue's in-flight and de-dup entries for it. Called by the worker,
// never by external callers.
func (a *Actor) Complete(ctx context.Context, key reqpool.RequestKey, proof *prover.Proof) (reqpool.StatusWithContext, error) {
	return a.Act(ctx, Action{Kind: actionComplete, Key: key, result: &completionResult{proof: proof}})
}

// Fail reports that key's backend run returned cause.
func (a *Actor) Fail(ctx context.Context, key reqpool.RequestKey, cause error) (reqpool.StatusWithContext, error) {
	return a.Act(ctx, Action{Kind: actionComplete, Key: key, result: &completionResult{err: cause.Error()}})
}

// Next asks the actor for the next queue item; the worker does not touch
// the queue directly, since the actor is its sole owner.
func (a *Actor) Next(ctx context.Context) (reqpool.RequestKey, reqpool.RequestEntity, bool, error) {
	reply := make(chan nextReply, 1)
	select {
	case a.nextCh <- nextEnvelope{reply: reply}:
	case <-ctx.Done():
		return nil, nil, false, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.key, r.entity, r.ok, nil
	case <-ctx.Done():
		return nil, nil, false, ctx.Err()
	}
}

// PoolGetStatus bypasses the action channel and reads the shared pool
// directly; read-only queries need no serialization.
func (a *Actor) PoolGetStatus(ctx context.Context, key reqpool.RequestKey) (reqpool.StatusWithContext, bool, error) {
	return a.pool.GetStatus(ctx, key)
}

// PoolListStatus bypasses the action channel.
func (a *Actor) PoolListStatus(ctx context.Context) (map[string]reqpool.StatusWithContext, error) {
	return a.pool.List(ctx)
}

// IsPaused reports the pause flag, readable by the worker and writable
// by the actor.
func (a *Actor) IsPaused() bool { return a.isPaused.Load() }

// CheckNotPaused returns errs.SystemPaused when paused. Prove/Cancel
// themselves are always accepted while paused (a Prove submitted during a
// pause still lands as Registered), so SystemPaused is for a caller
// upstream of Act that wants to refuse intake synchronously instead of
// queuing work nothing will currently pop.
func (a *Actor) CheckNotPaused() error {
	if a.IsPaused() {
		return errs.SystemPaused
	}
	return nil
}

// Pause sets the pause flag and blocks until the worker has observed it
// via ObservePause.
func (a *Actor) Pause(ctx context.Context) error {
	// Drop an observation left over from an earlier pause.
	select {
	case <-a.pauseObserved:
	default:
	}
	a.isPaused.Store(true)
	select {
	case <-a.pauseObserved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unpause clears is_paused and releases any worker blocked in ObservePause.
func (a *Actor) Unpause() {
	a.isPaused.Store(false)
	select {
	case a.unpauseCh <- struct{}{}:
	default:
	}
}

// ObservePause is the worker's pause checkpoint: when paused it signals
// the pause and blocks until unpause. It is a no-op when not paused.
func (a *Actor) ObservePause(ctx context.Context) error {
	for a.IsPaused() {
		select {
		case a.pauseObserved <- struct{}{}:
		default:
		}
		select {
		case <-a.unpauseCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// WaitWake blocks until AddPending (directly, or via aggregation
// promotion) makes new work available, or ctx is cancelled.
func (a *Actor) WaitWake(ctx context.Context) error {
	select {
	case <-a.wakeCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) wake() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

func (a *Actor) handle(ctx context.Context, action Action) (reqpool.StatusWithContext, error) {
	switch action.Kind {
	case ActionProve:
		return a.handleProve(ctx, action.Key, action.Entity)
	case ActionCancel:
		return a.handleCancel(ctx, action.Key)
	case actionComplete:
		return a.handleComplete(ctx, action.Key, action.result)
	default:
		return reqpool.StatusWithContext{}, errs.New(errs.KindInvalidRequestConfig, "unknown action kind")
	}
}

// handleProve implements the Prove row set of the lifecycle transition
// table: absent/Failed/Cancelled keys register, terminal Success replies
// idempotently, in-flight keys reply with their current status.
func (a *Actor) handleProve(ctx context.Context, key reqpool.RequestKey, entity reqpool.RequestEntity) (reqpool.StatusWithContext, error) {
	_, status, ok, err := a.pool.Get(ctx, key)
	if err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	if ok {
		switch status.Status.Kind {
		case reqpool.StatusSuccess:
			return status, nil
		case reqpool.StatusFailed, reqpool.StatusCancelled:
			// falls through: re-register as Registered below.
		default: // Registered, WorkInProgress: already in flight.
			return status, nil
		}
	}

	registered := reqpool.NewStatusWithContext(reqpool.NewRegistered(), a.now())
	if err := a.pool.Add(ctx, key, entity, registered); err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	log.Info("reqactor: request registered", "key", key.Encode())

	if key.Kind() == reqpool.KindAggregation {
		if err := a.expandAggregation(ctx, key, entity); err != nil {
			return reqpool.StatusWithContext{}, err
		}
		return registered, nil
	}

	a.queue.AddPending(key, entity)
	a.wake()
	return registered, nil
}

// expandAggregation registers each sub-id as its own Prove through the
// same handleProve path, so sub-requests benefit from deduplication, and
// records the sub-to-parent linkage used to detect readiness later.
func (a *Actor) expandAggregation(ctx context.Context, key reqpool.RequestKey, entity reqpool.RequestEntity) error {
	agg, ok := entity.(*reqpool.AggregationRequestEntity)
	if !ok {
		return errs.New(errs.KindInvalidRequestConfig, "aggregation key requires *reqpool.AggregationRequestEntity")
	}
	if a.subEntity == nil {
		return errs.New(errs.KindInvalidRequestConfig, "no sub-entity builder configured for aggregation expansion")
	}

	a.aggByKey[key.Encode()] = key
	for _, subID := range agg.SubIDs {
		subKey, subEntityValue := a.subEntity(subID, agg.Type)
		a.subParents[subKey.Encode()] = append(a.subParents[subKey.Encode()], key.Encode())
		if _, err := a.handleProve(ctx, subKey, subEntityValue); err != nil {
			return err
		}
	}
	return nil
}

// handleCancel cancels key: terminal keys are a no-op returning the
// current terminal status, an aggregation cancels its sub-requests first.
func (a *Actor) handleCancel(ctx context.Context, key reqpool.RequestKey) (reqpool.StatusWithContext, error) {
	entity, status, ok, err := a.pool.Get(ctx, key)
	if err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	if !ok {
		return reqpool.StatusWithContext{}, errs.New(errs.KindInvalidRequestConfig, "unknown request key")
	}
	if status.Status.IsTerminal() {
		return status, nil
	}

	if key.Kind() == reqpool.KindAggregation && a.subEntity != nil {
		if agg, ok := entity.(*reqpool.AggregationRequestEntity); ok {
			for _, subID := range agg.SubIDs {
				subKey, _ := a.subEntity(subID, agg.Type)
				if _, err := a.handleCancel(ctx, subKey); err != nil {
					log.Warn("reqactor: failed to cancel sub-request", "key", subKey.Encode(), "err", err)
				}
			}
		}
	}

	cancelled := reqpool.NewStatusWithContext(reqpool.NewCancelled(), a.now())
	if _, err := a.pool.UpdateStatus(ctx, key, cancelled); err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	a.queue.Complete(key)
	return cancelled, nil
}

// handleComplete applies the WorkInProgress to Success/Failed transition,
// and checks whether completing this sub-proof unblocks a pending
// aggregation. A report for a key that is already terminal (e.g. Cancelled
// while the backend ran) leaves the stored status unchanged.
func (a *Actor) handleComplete(ctx context.Context, key reqpool.RequestKey, result *completionResult) (reqpool.StatusWithContext, error) {
	current, found, err := a.pool.GetStatus(ctx, key)
	if err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	if found && current.Status.IsTerminal() {
		a.queue.Complete(key)
		return current, nil
	}

	var status reqpool.StatusWithContext
	if result.err != "" {
		status = reqpool.NewStatusWithContext(reqpool.NewFailed(result.err), a.now())
	} else {
		status = reqpool.NewStatusWithContext(reqpool.NewSuccess(result.proof), a.now())
	}
	if _, err := a.pool.UpdateStatus(ctx, key, status); err != nil {
		return reqpool.StatusWithContext{}, errs.Wrap(errs.KindPool, err)
	}
	a.queue.Complete(key)

	// Keep the sub→parent linkage for any aggregation still waiting: a
	// Failed sub-proof may be re-Proved later, and its eventual Success
	// must still be able to promote the aggregation.
	parents := a.subParents[key.Encode()]
	remaining := parents[:0]
	for _, aggEncode := range parents {
		if err := a.tryPromoteAggregation(ctx, aggEncode); err != nil {
			log.Warn("reqactor: failed to check aggregation readiness", "agg", aggEncode, "err", err)
		}
		if _, waiting := a.aggByKey[aggEncode]; waiting {
			remaining = append(remaining, aggEncode)
		}
	}
	if len(remaining) == 0 {
		delete(a.subParents, key.Encode())
	} else {
		a.subParents[key.Encode()] = remaining
	}
	return status, nil
}

// tryPromoteAggregation enqueues the aggregation at aggEncode once every
// sub-id it depends on has reached Success, building its concrete entity
// with proofs in sub-id order.
func (a *Actor) tryPromoteAggregation(ctx context.Context, aggEncode string) error {
	aggKey, ok := a.aggByKey[aggEncode]
	if !ok {
		return nil
	}
	entity, status, ok, err := a.pool.Get(ctx, aggKey)
	if err != nil {
		return errs.Wrap(errs.KindPool, err)
	}
	if !ok || status.Status.IsTerminal() {
		delete(a.aggByKey, aggEncode)
		return nil
	}
	agg, ok := entity.(*reqpool.AggregationRequestEntity)
	if !ok {
		return nil
	}

	proofs := make([]*prover.Proof, len(agg.SubIDs))
	for i, subID := range agg.SubIDs {
		subKey, _ := a.subEntity(subID, agg.Type)
		_, subStatus, found, err := a.pool.Get(ctx, subKey)
		if err != nil {
			return errs.Wrap(errs.KindPool, err)
		}
		if !found {
			return nil
		}
		switch subStatus.Status.Kind {
		case reqpool.StatusSuccess:
			proofs[i] = subStatus.Status.Proof
		default:
			// Failed, Cancelled, or still in flight: the aggregation stays
			// Registered either way.
			return nil
		}
	}

	updated := agg.WithProofs(proofs)
	if err := a.pool.Add(ctx, aggKey, updated, status); err != nil {
		return errs.Wrap(errs.KindPool, err)
	}
	delete(a.aggByKey, aggEncode)
	log.Info("reqactor: aggregation ready, scheduling", "key", aggEncode)
	a.queue.AddPending(aggKey, updated)
	a.wake()
	return nil
}
