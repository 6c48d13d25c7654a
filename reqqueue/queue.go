// Package reqqueue implements the three-tier priority FIFO the actor
// schedules work into. Aggregation requests preempt batch proofs, which
// preempt everything else: an aggregation that already has its sub-proofs
// is latency-sensitive (it unblocks a caller), batch proofs are the common
// case, and everything else (preflight, input generation) is best-effort
// background work.
package reqqueue

import (
	"container/list"

	"github.com/ethereum/go-ethereum/log"
	"github.com/taikoxyz/raiko-sub002/reqpool"
)

type item struct {
	key    reqpool.RequestKey
	entity reqpool.RequestEntity
}

// queuedEntry remembers where a waiting key sits, so Complete can evict a
// cancelled key from its FIFO in O(1) without leaving a stale element
// behind.
type queuedEntry struct {
	tier *list.List
	elem *list.Element
}

// Queue holds the three priority FIFOs plus the in-flight and
// de-duplication sets. It is not safe for concurrent use by multiple
// goroutines; the actor is its sole owner and serializes all mutation.
type Queue struct {
	aggQueue        *list.List
	batchQueue      *list.List
	preflightQueue  *list.List
	workingInFlight map[string]reqpool.RequestKey
	queued          map[string]queuedEntry
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{
		aggQueue:        list.New(),
		batchQueue:      list.New(),
		preflightQueue:  list.New(),
		workingInFlight: map[string]reqpool.RequestKey{},
		queued:          map[string]queuedEntry{},
	}
}

// Contains reports whether key is queued in any tier or currently
// in-flight, the union the de-duplication set always equals.
func (q *Queue) Contains(key reqpool.RequestKey) bool {
	enc := key.Encode()
	if _, ok := q.queued[enc]; ok {
		return true
	}
	_, ok := q.workingInFlight[enc]
	return ok
}

// AddPending pushes (key, entity) onto the tier selected by key's Kind.
// Pushing a duplicate key (one already queued or in-flight) is a silent
// no-op.
func (q *Queue) AddPending(key reqpool.RequestKey, entity reqpool.RequestEntity) {
	if q.Contains(key) {
		return
	}
	enc := key.Encode()

	var tier *list.List
	switch key.Kind() {
	case reqpool.KindAggregation:
		log.Info("reqqueue: adding aggregation request to high priority queue", "key", enc)
		tier = q.aggQueue
	case reqpool.KindBatchProof:
		log.Info("reqqueue: adding batch proof request to medium priority queue", "key", enc)
		tier = q.batchQueue
	default:
		tier = q.preflightQueue
	}
	q.queued[enc] = queuedEntry{tier: tier, elem: tier.PushBack(item{key, entity})}
}

// TryNext pops the highest-priority non-empty tier's front entry and moves
// it into the in-flight set, atomically with respect to Queue's other
// methods (the actor calls TryNext from within its own single-threaded
// critical section, so no extra locking is needed here).
func (q *Queue) TryNext() (reqpool.RequestKey, reqpool.RequestEntity, bool) {
	for _, tier := range []*list.List{q.aggQueue, q.batchQueue, q.preflightQueue} {
		if front := tier.Front(); front != nil {
			tier.Remove(front)
			it := front.Value.(item)
			enc := it.key.Encode()
			delete(q.queued, enc)
			q.workingInFlight[enc] = it.key
			return it.key, it.entity, true
		}
	}
	return nil, nil, false
}

// Complete removes key from the in-flight set and the de-duplication set,
// making it eligible for re-enqueueing. A key that was still waiting in a
// FIFO (cancelled before the worker reached it) is evicted from its tier
// as well.
func (q *Queue) Complete(key reqpool.RequestKey) {
	enc := key.Encode()
	if qe, ok := q.queued[enc]; ok {
		qe.tier.Remove(qe.elem)
		delete(q.queued, enc)
	}
	delete(q.workingInFlight, enc)
}

// InFlight reports whether key is currently being worked on.
func (q *Queue) InFlight(key reqpool.RequestKey) bool {
	_, ok := q.workingInFlight[key.Encode()]
	return ok
}

// Len returns the number of entries in each tier, for tests and metrics.
func (q *Queue) Len() (agg, batch, preflight, inFlight int) {
	return q.aggQueue.Len(), q.batchQueue.Len(), q.preflightQueue.Len(), len(q.workingInFlight)
}
