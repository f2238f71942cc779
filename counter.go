// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

import "code.hybscloud.com/atomix"

const (
	// activeWorkersShift is the bit offset of the active-workers field.
	activeWorkersShift = 20

	// requestCountMask covers the lower 20 bits holding the request count.
	// Matches the batcher queue capacity: the request count is bounded by
	// the number of queued elements, which never exceeds QueueCapacity.
	requestCountMask = 1<<activeWorkersShift - 1

	oneRequest      = 1
	oneActiveWorker = 1 << activeWorkersShift

	// ActiveWorkersMax is the largest representable active-workers count:
	// 12 bits above the request count field.
	ActiveWorkersMax = 1<<12 - 1
)

// PackedCounter holds two counters in a single atomic word:
//
//   - request count (bits [0, 20)): a lower bound on the number of queued
//     elements reserved for workers. Incremented by producers after a
//     successful append, decremented by workers before each Take. Because it
//     never exceeds the true queue size, it bounds the number of Take calls
//     by the number of successful TryAppend calls.
//   - active workers (bits [20, 32)): the number of running workers.
//
// Packing both values into one word is load-bearing: a producer must observe
// the active-workers count and increment the request count in a single atomic
// step, otherwise it races with worker retirement and can strand a positive
// request count with zero workers. Every update is a CAS on the full word
// against a previously loaded snapshot.
//
// The word is 64 bits wide but uses the 32-bit layout above; the upper bits
// stay zero.
type PackedCounter struct {
	_    pad
	word atomix.Uint64
	_    pad
}

// Snapshot returns the current packed word.
// Pass the snapshot to the Try methods; they fail if the word moved.
func (c *PackedCounter) Snapshot() uint64 {
	return c.word.LoadAcquire()
}

// ActiveWorkers extracts the active-workers count from a snapshot.
func ActiveWorkers(snapshot uint64) int {
	return int(snapshot >> activeWorkersShift)
}

// RequestCount extracts the request count from a snapshot.
func RequestCount(snapshot uint64) int {
	return int(snapshot & requestCountMask)
}

// TryAddWorker reserves one worker slot, leaving the request count untouched.
// The caller must have checked ActiveWorkers(snapshot) against its target.
// Returns false if the word changed since snapshot; re-snapshot and retry.
func (c *PackedCounter) TryAddWorker(snapshot uint64) bool {
	return c.word.CompareAndSwapAcqRel(snapshot, snapshot+oneActiveWorker)
}

// TryRemoveWorker retires one worker.
// The caller must have checked RequestCount(snapshot) == 0: retiring with
// reserved requests outstanding would starve them.
func (c *PackedCounter) TryRemoveWorker(snapshot uint64) bool {
	return c.word.CompareAndSwapAcqRel(snapshot, snapshot-oneActiveWorker)
}

// TryAddRequest publishes one enqueued element to the workers.
// The caller must have checked that the active-workers count in snapshot is
// at its target; the single-word CAS makes that observation and this
// increment atomic with respect to worker retirement.
func (c *PackedCounter) TryAddRequest(snapshot uint64) bool {
	return c.word.CompareAndSwapAcqRel(snapshot, snapshot+oneRequest)
}

// TryTakeRequests reserves n queued elements for the calling worker.
// The caller must have checked n <= RequestCount(snapshot). On success the
// worker owns n Take calls on the queue.
func (c *PackedCounter) TryTakeRequests(snapshot uint64, n int) bool {
	return c.word.CompareAndSwapAcqRel(snapshot, snapshot-uint64(n)*oneRequest)
}
