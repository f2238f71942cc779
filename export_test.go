// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

// NewBatcherWithQueueCapacity exposes the low-level constructor so tests can
// exercise the queue-full path without filling 2^20 slots.
func NewBatcherWithQueueCapacity[Req, Resp any](
	executor Executor, multiplexer Multiplexer[Req, Resp], targetWorkerCount, queueCapacity int,
) *Batcher[Req, Resp] {
	return newBatcher(executor, multiplexer, targetWorkerCount, queueCapacity)
}
