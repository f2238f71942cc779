// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package batcher provides a unary request-response interface over batched
// execution.
//
// Callers submit one request at a time and receive a [PendingResponse]
// immediately; internally, in-flight requests are coalesced into batches
// and handed to a user-supplied [Multiplexer]. On hot paths where the
// downstream cost is dominated by per-call overhead (remote cache RPCs are
// the canonical case), coalescing raises throughput by orders of magnitude.
//
// # Quick Start
//
//	mux := batcher.MultiplexerFunc[Key, Value](
//	    func(keys []Key) ([]Value, error) {
//	        return cacheClient.GetBatch(keys) // one RPC for the whole batch
//	    },
//	)
//	b := batcher.NewBatcher[Key, Value](batcher.GoExecutor{}, mux, 4)
//
//	pr := b.Submit(ctx, key)
//	value, err := pr.Result()
//
// Or with the builder, which defaults the executor and worker target:
//
//	b := batcher.Build(batcher.New[Key, Value](mux).TargetWorkers(4))
//
// # Batching Protocol
//
// Concurrent workers cycle through: collect available requests from the
// queue (up to BatchSize, plus the seed element that started the cycle),
// execute them as one Multiplexer call, fan responses back into the
// individual handles, then either start the next batch or retire.
//
// Every submitted request is executed exactly once. A request takes one of
// three paths:
//
//  1. The submitting goroutine finds the worker pool below target, reserves
//     a worker slot, and seeds the new worker with its own request.
//  2. The request is enqueued and published to the pool by incrementing the
//     packed request count — only while the pool is observed at target, in
//     the same atomic step.
//  3. The request is enqueued, the pool has meanwhile dipped below target,
//     and the submitter starts a worker seeded with an arbitrary queued
//     element instead; the pool reaches every enqueued element.
//
// The pivot is [PackedCounter]: the active-workers count and the queued
// request count share one atomic word, so producers and retiring workers
// always observe and update both jointly. Workers retire only when the
// request count is zero in the retirement CAS itself, which makes
// starvation (requests reserved, no workers) impossible.
//
// # Ordering
//
// Within a batch, responses are positionally aligned with requests. Across
// batches there is no ordering guarantee: two requests submitted in order
// may complete in either order, in the same or different batches.
//
// # Backpressure
//
// Submit never blocks on workers. When the queue is full the submitting
// goroutine sleeps in 100 ms slices and retries; cancelling the submit
// context during that wait resolves the handle with the context error
// without enqueueing. There is no other cancellation: an in-flight batch is
// never cancelled through its response handles, and per-request timeouts
// belong to the caller (wrap Wait with a context).
//
// # Error Handling
//
// A Multiplexer error resolves every handle in the batch with that error
// verbatim. A wrong-length response list resolves every handle with an
// error wrapping [ErrResponseCount]. Neither kills the worker: it proceeds
// to the continue-or-retire decision, and later submissions are unaffected.
//
// [Fifo.TryAppend] signals a full queue with [ErrWouldBlock], sourced from
// [code.hybscloud.com/iox] for ecosystem consistency; classification
// helpers [IsWouldBlock], [IsSemantic] and [IsNonFailure] delegate there.
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomic memory orderings on separate variables, which
// is exactly how the queue's slot flags protect their data fields. Stress
// tests over those paths are skipped under the race detector via
// [RaceEnabled]; the algorithms are verified by the non-race stress suite.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package batcher
