// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher_test

import (
	"testing"

	"code.hybscloud.com/batcher"
)

// =============================================================================
// PackedCounter - Packing and CAS Semantics
// =============================================================================

// TestPackedCounterZero tests the initial snapshot.
func TestPackedCounterZero(t *testing.T) {
	var c batcher.PackedCounter

	s := c.Snapshot()
	if got := batcher.ActiveWorkers(s); got != 0 {
		t.Fatalf("ActiveWorkers: got %d, want 0", got)
	}
	if got := batcher.RequestCount(s); got != 0 {
		t.Fatalf("RequestCount: got %d, want 0", got)
	}
}

// TestPackedCounterWorkers tests worker add/remove round trips.
func TestPackedCounterWorkers(t *testing.T) {
	var c batcher.PackedCounter

	for i := range 3 {
		s := c.Snapshot()
		if !c.TryAddWorker(s) {
			t.Fatalf("TryAddWorker(%d): CAS failed on fresh snapshot", i)
		}
	}

	s := c.Snapshot()
	if got := batcher.ActiveWorkers(s); got != 3 {
		t.Fatalf("ActiveWorkers: got %d, want 3", got)
	}
	if got := batcher.RequestCount(s); got != 0 {
		t.Fatalf("RequestCount after worker adds: got %d, want 0", got)
	}

	for i := range 3 {
		s := c.Snapshot()
		if !c.TryRemoveWorker(s) {
			t.Fatalf("TryRemoveWorker(%d): CAS failed on fresh snapshot", i)
		}
	}
	if got := batcher.ActiveWorkers(c.Snapshot()); got != 0 {
		t.Fatalf("ActiveWorkers after removes: got %d, want 0", got)
	}
}

// TestPackedCounterRequests tests request publish/reserve round trips.
func TestPackedCounterRequests(t *testing.T) {
	var c batcher.PackedCounter

	for i := range 5 {
		s := c.Snapshot()
		if !c.TryAddRequest(s) {
			t.Fatalf("TryAddRequest(%d): CAS failed on fresh snapshot", i)
		}
	}

	s := c.Snapshot()
	if got := batcher.RequestCount(s); got != 5 {
		t.Fatalf("RequestCount: got %d, want 5", got)
	}
	if got := batcher.ActiveWorkers(s); got != 0 {
		t.Fatalf("ActiveWorkers after request adds: got %d, want 0", got)
	}

	if !c.TryTakeRequests(s, 3) {
		t.Fatal("TryTakeRequests(3): CAS failed on fresh snapshot")
	}
	if got := batcher.RequestCount(c.Snapshot()); got != 2 {
		t.Fatalf("RequestCount after take: got %d, want 2", got)
	}
}

// TestPackedCounterJointFields tests that both fields coexist in one word
// without bleeding into each other.
func TestPackedCounterJointFields(t *testing.T) {
	var c batcher.PackedCounter

	for range 2 {
		c.TryAddWorker(c.Snapshot())
	}
	for range 7 {
		c.TryAddRequest(c.Snapshot())
	}

	s := c.Snapshot()
	if got := batcher.ActiveWorkers(s); got != 2 {
		t.Fatalf("ActiveWorkers: got %d, want 2", got)
	}
	if got := batcher.RequestCount(s); got != 7 {
		t.Fatalf("RequestCount: got %d, want 7", got)
	}

	// Draining requests leaves workers intact.
	if !c.TryTakeRequests(s, 7) {
		t.Fatal("TryTakeRequests(7): CAS failed on fresh snapshot")
	}
	s = c.Snapshot()
	if got := batcher.ActiveWorkers(s); got != 2 {
		t.Fatalf("ActiveWorkers after request drain: got %d, want 2", got)
	}
	if got := batcher.RequestCount(s); got != 0 {
		t.Fatalf("RequestCount after drain: got %d, want 0", got)
	}
}

// TestPackedCounterStaleSnapshot tests that a CAS against a moved word fails,
// which is what forces callers to re-observe both fields jointly.
func TestPackedCounterStaleSnapshot(t *testing.T) {
	var c batcher.PackedCounter

	stale := c.Snapshot()
	if !c.TryAddWorker(stale) {
		t.Fatal("TryAddWorker: CAS failed on fresh snapshot")
	}

	if c.TryAddRequest(stale) {
		t.Fatal("TryAddRequest succeeded on stale snapshot")
	}
	if c.TryAddWorker(stale) {
		t.Fatal("TryAddWorker succeeded on stale snapshot")
	}
	if c.TryRemoveWorker(stale) {
		t.Fatal("TryRemoveWorker succeeded on stale snapshot")
	}

	// Re-observed snapshot succeeds.
	if !c.TryAddRequest(c.Snapshot()) {
		t.Fatal("TryAddRequest: CAS failed on fresh snapshot")
	}
}

// TestPackedCounterBounds tests the documented field limits.
func TestPackedCounterBounds(t *testing.T) {
	if batcher.ActiveWorkersMax != 4095 {
		t.Fatalf("ActiveWorkersMax: got %d, want 4095", batcher.ActiveWorkersMax)
	}
	if batcher.QueueCapacity != 1<<20 {
		t.Fatalf("QueueCapacity: got %d, want %d", batcher.QueueCapacity, 1<<20)
	}
	if batcher.BatchSize != 4095 {
		t.Fatalf("BatchSize: got %d, want 4095", batcher.BatchSize)
	}
}
