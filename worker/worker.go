// Package worker implements the bounded-concurrency dispatcher that
// drains the actor's queue and invokes prover backends, running alongside
// the actor for the lifetime of the process.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/taikoxyz/raiko-sub002/errs"
	"github.com/taikoxyz/raiko-sub002/prover"
	"github.com/taikoxyz/raiko-sub002/reqpool"
)

// ActorHandle is the subset of *reqactor.Actor the worker depends on,
// narrowed to an interface so tests can supply a fake actor.
type ActorHandle interface {
	Next(ctx context.Context) (reqpool.RequestKey, reqpool.RequestEntity, bool, error)
	Complete(ctx context.Context, key reqpool.RequestKey, proof *prover.Proof) (reqpool.StatusWithContext, error)
	Fail(ctx context.Context, key reqpool.RequestKey, cause error) (reqpool.StatusWithContext, error)
	ObservePause(ctx context.Context) error
	WaitWake(ctx context.Context) error
	PoolGetStatus(ctx context.Context, key reqpool.RequestKey) (reqpool.StatusWithContext, bool, error)
}

// Pool is the subset of reqpool.Pool the worker touches directly: marking a
// key WorkInProgress happens on the shared pool connection, not through the
// actor's serialized action channel; the pool connection is shared across
// actor, worker, and read APIs.
type Pool interface {
	UpdateStatus(ctx context.Context, key reqpool.RequestKey, status reqpool.StatusWithContext) (reqpool.StatusWithContext, error)
}

// InputBuilder assembles a prover.Input (a GuestInput) for an entity,
// calling out to RPC/stateless validation as needed. A nil
// InputBuilder makes the worker dispatch the RequestEntity itself as Input,
// which is enough for backends (and tests) that need no guest input
// assembly.
type InputBuilder interface {
	Build(ctx context.Context, entity reqpool.RequestEntity) (prover.Input, error)
}

// Config bounds the worker's concurrency and cancellation-poll cadence.
type Config struct {
	// Concurrency is the maximum number of backend dispatches running at
	// once. Defaults to 1 if <= 0.
	Concurrency int
	// CancelPollInterval is how often an in-flight dispatch re-checks the
	// pool for a Cancelled status. Defaults to 500ms if <= 0.
	CancelPollInterval time.Duration
}

// Worker drains the actor's queue with a bounded concurrency budget,
// dispatching to prover backends and reporting results back.
type Worker struct {
	actor    ActorHandle
	pool     Pool
	registry *prover.Registry
	ids      prover.IDStore
	builder  InputBuilder
	cfg      Config
	now      func() time.Time

	sem chan struct{}
	wg  sync.WaitGroup
}

// New constructs a Worker. builder may be nil (see InputBuilder).
func New(actor ActorHandle, pool Pool, registry *prover.Registry, ids prover.IDStore, builder InputBuilder, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.CancelPollInterval <= 0 {
		cfg.CancelPollInterval = 500 * time.Millisecond
	}
	return &Worker{
		actor:    actor,
		pool:     pool,
		registry: registry,
		ids:      ids,
		builder:  builder,
		cfg:      cfg,
		now:      time.Now,
		sem:      make(chan struct{}, cfg.Concurrency),
	}
}

// Run drives the loop until ctx is cancelled, then waits for
// any in-flight dispatches to finish before returning.
func (w *Worker) Run(ctx context.Context) {
	defer w.wg.Wait()
	for {
		if ctx.Err() != nil {
			return
		}
		if err := w.actor.ObservePause(ctx); err != nil {
			return
		}

		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		key, entity, ok, err := w.actor.Next(ctx)
		if err != nil {
			<-w.sem
			return
		}
		if !ok {
			<-w.sem
			if err := w.actor.WaitWake(ctx); err != nil {
				return
			}
			continue
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(ctx, key, entity)
		}()
	}
}

// process marks key WorkInProgress, dispatches it, and reports the
// resulting Success/Failed transition back to the actor.
func (w *Worker) process(ctx context.Context, key reqpool.RequestKey, entity reqpool.RequestEntity) {
	wip := reqpool.NewStatusWithContext(reqpool.NewWorkInProgress(), w.now())
	if _, err := w.pool.UpdateStatus(ctx, key, wip); err != nil {
		log.Warn("worker: failed to mark work in progress", "key", key.Encode(), "err", err)
	}

	dispatchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go w.watchCancellation(dispatchCtx, stopWatch, key)

	proof, err := w.dispatch(dispatchCtx, key, entity)
	if err != nil {
		if _, rerr := w.actor.Fail(ctx, key, err); rerr != nil {
			log.Warn("worker: failed to report failure", "key", key.Encode(), "err", rerr)
		}
		return
	}
	if _, rerr := w.actor.Complete(ctx, key, proof); rerr != nil {
		log.Warn("worker: failed to report completion", "key", key.Encode(), "err", rerr)
	}
}

// watchCancellation polls the pool for key reaching Cancelled while a
// dispatch is in flight, invoking the backend's cancellation hook and
// tearing down dispatchCtx so the child task unwinds cooperatively at the
// next point it checks its context.
func (w *Worker) watchCancellation(ctx context.Context, cancelDispatch context.CancelFunc, key reqpool.RequestKey) {
	ticker := time.NewTicker(w.cfg.CancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status, ok, err := w.actor.PoolGetStatus(ctx, key)
			if err != nil || !ok {
				continue
			}
			if status.Status.Kind == reqpool.StatusCancelled {
				if proverKey, ok := toProverKey(key); ok {
					if backend, berr := w.registry.Backend(key.ProofType()); berr == nil {
						if cerr := backend.Cancel(context.Background(), proverKey, w.ids); cerr != nil {
							log.Warn("worker: backend cancel hook failed", "key", key.Encode(), "err", cerr)
						}
					}
				}
				cancelDispatch()
				return
			}
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, key reqpool.RequestKey, entity reqpool.RequestEntity) (*prover.Proof, error) {
	backend, err := w.registry.Backend(entity.ProofType())
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidRequestConfig, err)
	}

	var input prover.Input = entity
	if w.builder != nil {
		built, err := w.builder.Build(ctx, entity)
		if err != nil {
			return nil, errs.Wrap(errs.KindRPC, err)
		}
		input = built
	}

	switch e := entity.(type) {
	case *reqpool.SingleProofRequestEntity:
		return backend.Run(ctx, input, nil, prover.Config(e.ProverArgs), w.ids)
	case *reqpool.BatchProofRequestEntity:
		return backend.BatchRun(ctx, input, nil, prover.Config(e.ProverArgs), w.ids)
	case *reqpool.AggregationRequestEntity:
		if !e.Ready() {
			return nil, errs.New(errs.KindInvalidRequestConfig, "aggregation dispatched before all sub-proofs were ready")
		}
		return backend.Aggregate(ctx, input, nil, prover.Config(e.ProverArgs), w.ids)
	default:
		return nil, errs.New(errs.KindInvalidRequestConfig, fmt.Sprintf("unknown request entity type %T", entity))
	}
}

// toProverKey flattens a reqpool.RequestKey into the id-store's prover.Key,
// which has no aggregation variant: the id store only ever addresses the
// underlying single/batch proofs a backend actually runs.
func toProverKey(key reqpool.RequestKey) (prover.Key, bool) {
	switch k := key.(type) {
	case reqpool.SingleProofRequestKey:
		return prover.Key{ChainID: k.ChainID, BlockNumber: k.BlockNumber, BlockHash: k.BlockHash, ProofType: k.Type}, true
	case reqpool.BatchProofRequestKey:
		return prover.Key{ChainID: k.ChainID, BlockNumber: k.BatchID, ProofType: k.Type}, true
	default:
		return prover.Key{}, false
	}
}
