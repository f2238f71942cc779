// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

import (
	"context"
	"fmt"
	"time"

	"code.hybscloud.com/spin"
)

const (
	// BatchSize is the maximum number of elements a worker pulls from the
	// queue per batch. Each batch starts from one seed element, so batches
	// delivered to the Multiplexer hold at most BatchSize+1 requests.
	BatchSize = 4095

	// QueueCapacity is the capacity of the internal queue. It equals
	// requestCountMask+1 so the packed request count can always mirror the
	// queue occupancy lower bound.
	QueueCapacity = requestCountMask + 1

	// queueFullSleep is the producer sleep when the queue is full. The
	// queue filling up means the downstream is bandwidth-bound; a coarse
	// sleep outperforms spinning or a larger buffer there.
	queueFullSleep = 100 * time.Millisecond
)

// Batcher presents a unary submit/response interface but executes requests
// in batches.
//
// Callers provide a [Multiplexer] that performs the actual batched
// operation. Workers collect up to BatchSize+1 queued requests per cycle,
// execute them as one Multiplexer call, fan the responses back into the
// individual [PendingResponse] handles, and then either start the next batch
// or retire.
//
// Every accepted request is executed exactly once. A request either seeds a
// newly reserved worker directly, or it is enqueued and reserved for the
// worker pool through the packed counter; workers only retire when the
// reserved request count is zero, observed atomically with their own
// retirement.
//
// Batcher is long-lived: there is no drain or shutdown operation, and
// dropping the last reference simply releases its memory.
//
// Batcher is thread-safe.
type Batcher[Req, Resp any] struct {
	executor          Executor
	multiplexer       Multiplexer[Req, Resp]
	targetWorkerCount int

	counters PackedCounter
	queue    *Fifo[*PendingResponse[Req, Resp]]
}

// NewBatcher creates a batcher with the given collaborators.
//
// targetWorkerCount is the number of concurrent workers to aim for; it must
// be in [1, ActiveWorkersMax]. The executor must accept repeated task
// submissions without unbounded delay. Panics on nil collaborators or an
// out-of-range target.
func NewBatcher[Req, Resp any](
	executor Executor, multiplexer Multiplexer[Req, Resp], targetWorkerCount int,
) *Batcher[Req, Resp] {
	return newBatcher(executor, multiplexer, targetWorkerCount, QueueCapacity)
}

// newBatcher is the low-level constructor; queueCapacity is configurable for
// tests exercising the queue-full path.
func newBatcher[Req, Resp any](
	executor Executor, multiplexer Multiplexer[Req, Resp], targetWorkerCount, queueCapacity int,
) *Batcher[Req, Resp] {
	if executor == nil {
		panic("batcher: nil executor")
	}
	if multiplexer == nil {
		panic("batcher: nil multiplexer")
	}
	if targetWorkerCount < 1 || targetWorkerCount > ActiveWorkersMax {
		panic(fmt.Sprintf("batcher: targetWorkerCount %d out of range [1, %d]",
			targetWorkerCount, ActiveWorkersMax))
	}
	if queueCapacity > QueueCapacity {
		panic("batcher: queue capacity exceeds request count range")
	}
	return &Batcher[Req, Resp]{
		executor:          executor,
		multiplexer:       multiplexer,
		targetWorkerCount: targetWorkerCount,
		queue:             NewFifo[*PendingResponse[Req, Resp]](queueCapacity),
	}
}

// Submit hands a request to the batcher and returns its pending response.
//
// Submit never blocks on workers. The only blocking path is queue
// saturation, where the producer sleeps in queueFullSleep slices until a
// slot frees up; cancelling ctx during that wait resolves the returned
// handle with ctx.Err() without enqueueing the request. Outside the
// saturated path ctx is not consulted, and it never cancels an in-flight
// batch.
//
// Consider processing the response on another goroutine if processing is
// expensive, to avoid delaying work pending other responses in the batch.
func (b *Batcher[Req, Resp]) Submit(ctx context.Context, request Req) *PendingResponse[Req, Resp] {
	pr := newPendingResponse[Req, Resp](request)

	// Fast path: become a worker while the pool is below target, seeding
	// the new worker with this request directly.
	sw := spin.Wait{}
	for {
		snapshot := b.counters.Snapshot()
		if ActiveWorkers(snapshot) >= b.targetWorkerCount {
			break
		}
		if b.counters.TryAddWorker(snapshot) {
			b.executeBatch(pr)
			return pr
		}
		sw.Once()
	}

	for b.queue.TryAppend(&pr) != nil {
		timer := time.NewTimer(queueFullSleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			pr.setError(ctx.Err())
			return pr
		case <-timer.C:
		}
	}
	// Enqueuing succeeded.

	sw.Reset()
	for {
		snapshot := b.counters.Snapshot()
		if ActiveWorkers(snapshot) >= b.targetWorkerCount {
			// Publish the enqueued element to the worker pool. The
			// increment must not land if the active-workers count moved:
			// with zero workers a positive request count would starve.
			// The full-word CAS rules that out.
			if b.counters.TryAddRequest(snapshot) {
				return pr
			}
		} else {
			// The active-workers count dipped below target after the
			// append. Start a worker and seed it with an arbitrary queued
			// element; queue size and request count stay consistent
			// because this element's count was never incremented. Some
			// worker reaches pr even if this one does not.
			if b.counters.TryAddWorker(snapshot) {
				b.executeBatch(b.queue.Take())
				return pr
			}
		}
		sw.Once()
	}
}

// String returns a human-readable counter and queue snapshot.
// Consistent only at quiescence.
func (b *Batcher[Req, Resp]) String() string {
	snapshot := b.counters.Snapshot()
	return fmt.Sprintf("activeWorkers=%d, requestCount=%d\nqueue=%s\n",
		ActiveWorkers(snapshot), RequestCount(snapshot), b.queue)
}

// executeBatch schedules one worker cycle seeded with the given element.
//
// The caller must have reserved a worker slot (TryAddWorker) or be the
// continuation of a worker that has not retired; seed ownership follows the
// Take contract.
func (b *Batcher[Req, Resp]) executeBatch(seed *PendingResponse[Req, Resp]) {
	b.executor.Execute(func() { b.runBatch(seed) })
}

// runBatch is one worker cycle: assemble a batch, execute it, fan out the
// responses, then continue or retire. Multiplexer failures resolve the
// batch's handles and never kill the worker.
func (b *Batcher[Req, Resp]) runBatch(seed *PendingResponse[Req, Resp]) {
	batch := b.populateBatch(seed)

	requests := make([]Req, len(batch))
	for i, pr := range batch {
		requests[i] = pr.Request()
	}

	responses, err := b.multiplexer.Execute(requests)
	switch {
	case err != nil:
		for _, pr := range batch {
			pr.setError(err)
		}
	case len(responses) != len(batch):
		err = fmt.Errorf("%w: %d responses for %d requests",
			ErrResponseCount, len(responses), len(batch))
		for _, pr := range batch {
			pr.setError(err)
		}
	default:
		for i, pr := range batch {
			pr.setResponse(responses[i])
		}
	}

	b.continueToNextBatchOrBecomeIdle()
}

// populateBatch collects the worker's batch: the seed element plus up to
// BatchSize queued elements reserved by decrementing the request count.
func (b *Batcher[Req, Resp]) populateBatch(
	seed *PendingResponse[Req, Resp],
) []*PendingResponse[Req, Resp] {
	batch := []*PendingResponse[Req, Resp]{seed}
	sw := spin.Wait{}
	for {
		snapshot := b.counters.Snapshot()
		toTake := RequestCount(snapshot)
		if toTake == 0 {
			break
		}
		if toTake > BatchSize {
			toTake = BatchSize
		}
		if !b.counters.TryTakeRequests(snapshot, toTake) {
			sw.Once()
			continue
		}
		for range toTake {
			batch = append(batch, b.queue.Take())
		}
		break
	}
	return batch
}

// continueToNextBatchOrBecomeIdle either reserves one queued element to seed
// the worker's next batch, or retires the worker. Retirement and the
// request-count-is-zero observation are a single CAS, so no reserved request
// is ever left without a worker.
func (b *Batcher[Req, Resp]) continueToNextBatchOrBecomeIdle() {
	sw := spin.Wait{}
	for {
		snapshot := b.counters.Snapshot()
		if RequestCount(snapshot) == 0 {
			if b.counters.TryRemoveWorker(snapshot) {
				return
			}
		} else {
			if b.counters.TryTakeRequests(snapshot, 1) {
				b.executeBatch(b.queue.Take())
				return
			}
		}
		sw.Once()
	}
}
