// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

// Multiplexer is the injectable batching logic: it evaluates a group of
// requests in a single call.
//
// The response list must be positionally aligned with requests: responses[i]
// answers requests[i], and len(responses) must equal len(requests). A
// wrong-length response list is treated as a programmer error and fails the
// whole batch with [ErrResponseCount].
//
// A non-nil error fails every request in the batch with that error verbatim.
//
// Execute runs on the batcher's [Executor]. It may block (a remote RPC is the
// typical implementation); the batcher never invokes it from Submit's calling
// goroutine.
//
// Batch sizes are in [1, BatchSize+1].
type Multiplexer[Req, Resp any] interface {
	// Execute evaluates requests as a batch.
	// Returns responses positionally aligned with requests, or an error
	// that fails the whole batch.
	Execute(requests []Req) ([]Resp, error)
}

// MultiplexerFunc adapts a plain function to the Multiplexer interface.
//
// Example (identity multiplexer):
//
//	m := batcher.MultiplexerFunc[string, string](
//	    func(requests []string) ([]string, error) { return requests, nil },
//	)
type MultiplexerFunc[Req, Resp any] func(requests []Req) ([]Resp, error)

// Execute calls f(requests).
func (f MultiplexerFunc[Req, Resp]) Execute(requests []Req) ([]Resp, error) {
	return f(requests)
}

// Executor schedules worker cycles.
//
// Each task is one worker cycle: batch assembly, one Multiplexer.Execute
// call, response fan-out, and the continue-or-retire decision. The executor
// must accept repeated submissions without unbounded delay; a worker that
// decides to continue schedules its next cycle as a fresh task.
//
// Tasks never panic on data errors; multiplexer failures are routed into the
// affected pending responses.
type Executor interface {
	// Execute schedules task to run asynchronously.
	// Must not block the caller for the duration of the task.
	Execute(task func())
}

// GoExecutor runs each task on its own goroutine.
//
// This is the default executor: worker cycles are short-lived and bounded in
// number by the batcher's worker target, so plain goroutines are the natural
// scheduling unit.
type GoExecutor struct{}

// Execute runs task on a new goroutine.
func (GoExecutor) Execute(task func()) { go task() }
