// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

// Options configures batcher construction.
type Options struct {
	executor      Executor
	targetWorkers int
}

// Builder creates batchers with fluent configuration.
//
// The direct constructor [NewBatcher] is recommended when all collaborators
// are explicit. The builder supplies defaults for the common case:
// [GoExecutor] and a single worker.
//
// Example:
//
//	b := batcher.Build(batcher.New[Request, Response](mux).TargetWorkers(4))
type Builder[Req, Resp any] struct {
	multiplexer Multiplexer[Req, Resp]
	opts        Options
}

// New creates a batcher builder around the given multiplexer.
// Panics if multiplexer is nil.
func New[Req, Resp any](multiplexer Multiplexer[Req, Resp]) *Builder[Req, Resp] {
	if multiplexer == nil {
		panic("batcher: nil multiplexer")
	}
	return &Builder[Req, Resp]{
		multiplexer: multiplexer,
		opts:        Options{targetWorkers: 1},
	}
}

// TargetWorkers sets the number of concurrent workers to aim for.
// Must be in [1, ActiveWorkersMax]; checked at Build.
func (b *Builder[Req, Resp]) TargetWorkers(n int) *Builder[Req, Resp] {
	b.opts.targetWorkers = n
	return b
}

// Executor sets the executor worker cycles are scheduled on.
// Defaults to [GoExecutor].
func (b *Builder[Req, Resp]) Executor(e Executor) *Builder[Req, Resp] {
	b.opts.executor = e
	return b
}

// Build creates the configured batcher.
// Panics on an out-of-range worker target, like [NewBatcher].
func Build[Req, Resp any](b *Builder[Req, Resp]) *Batcher[Req, Resp] {
	executor := b.opts.executor
	if executor == nil {
		executor = GoExecutor{}
	}
	return NewBatcher(executor, b.multiplexer, b.opts.targetWorkers)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
