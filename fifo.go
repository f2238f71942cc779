// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Fifo is a bounded multi-producer multi-consumer queue with an explicit
// size counter.
//
// Unlike cycle-validated designs, Fifo tracks occupancy in a dedicated
// atomic counter so that an external coordinator (the batcher's
// [PackedCounter]) can mirror a lower bound of it. Append and take sides
// claim monotonically increasing 64-bit indices by fetch-and-add; the index
// masked by capacity-1 names the slot.
//
// Publication is per-slot: a slot is occupied iff its flag is set. Claiming
// an index and publishing the slot are two steps, so a peer that reaches a
// slot first spin-waits for the other side:
//
//   - An appender may find its claimed slot still occupied when the consumer
//     at the same position (one lap behind) has claimed but not yet cleared
//     it. The size counter blocked any append beyond capacity, so the clear
//     is already in progress.
//   - A taker may find its claimed slot still empty when the appender has
//     claimed but not yet published. Take's contract makes this wait
//     bounded: callers only claim against evidence of a publish.
//
// Both waits are short bounded spins; the queue holds no locks.
//
// Slots are not padded: the slot array is sized for large capacities (the
// batcher uses 2^20 slots of 16 bytes each), where padding every slot to a
// 64-byte cache line would multiply memory 4x for no benefit on the slow path
// the spins already are.
type Fifo[T any] struct {
	_           pad
	size        atomix.Int64
	_           pad
	appendIndex atomix.Uint64
	_           pad
	takeIndex   atomix.Uint64
	_           pad
	buffer      []fifoSlot[T]
	mask        uint64
	capacity    int64
}

type fifoSlot[T any] struct {
	full atomix.Bool
	data T
}

// NewFifo creates a bounded MPMC queue.
// Capacity rounds up to the next power of 2. Panics if capacity < 2.
func NewFifo[T any](capacity int) *Fifo[T] {
	if capacity < 2 {
		panic("batcher: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	return &Fifo[T]{
		buffer:   make([]fifoSlot[T], n),
		mask:     n - 1,
		capacity: int64(n),
	}
}

// TryAppend publishes an element.
// Returns ErrWouldBlock if the queue is full.
//
// On success the element is visible to exactly one future Take. Between
// claiming the append index and the release-store of the slot flag there is
// no allocation and no fallible work, so a successful claim always reaches
// publication and Take's spin is bounded.
func (q *Fifo[T]) TryAppend(elem *T) error {
	sw := spin.Wait{}
	for {
		n := q.size.LoadAcquire()
		if n == q.capacity {
			return ErrWouldBlock
		}
		if q.size.CompareAndSwapAcqRel(n, n+1) {
			break
		}
		sw.Once()
	}

	i := q.appendIndex.AddAcqRel(1) - 1
	slot := &q.buffer[i&q.mask]

	// The consumer one lap behind may still be clearing this slot.
	sw.Reset()
	for slot.full.LoadAcquire() {
		sw.Once()
	}

	slot.data = *elem
	slot.full.StoreRelease(true)
	return nil
}

// Take claims and returns the next element.
//
// The caller must hold evidence that a matching TryAppend has published or
// will shortly publish: either it decremented the coordinator's request
// count (incremented only after a successful append), or it owns an element
// it just appended whose count was never incremented. Without such evidence
// Take can spin unboundedly on an empty queue.
func (q *Fifo[T]) Take() T {
	j := q.takeIndex.AddAcqRel(1) - 1
	slot := &q.buffer[j&q.mask]

	// The appender at this index may have claimed but not yet published.
	sw := spin.Wait{}
	for !slot.full.LoadAcquire() {
		sw.Once()
	}

	elem := slot.data
	var zero T
	slot.data = zero
	slot.full.StoreRelease(false)
	q.size.AddAcqRel(-1)
	return elem
}

// Cap returns the queue capacity.
func (q *Fifo[T]) Cap() int {
	return int(q.capacity)
}

// Len returns the current number of published elements.
// The value is a racy snapshot; it is exact only at quiescence.
func (q *Fifo[T]) Len() int {
	return int(q.size.LoadAcquire())
}

// String returns a human-readable snapshot for debugging.
// Consistent only at quiescence.
func (q *Fifo[T]) String() string {
	return fmt.Sprintf("size=%d, appendIndex=%d, takeIndex=%d, capacity=%d",
		q.size.LoadRelaxed(), q.appendIndex.LoadRelaxed(), q.takeIndex.LoadRelaxed(), q.capacity)
}
