// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

import (
	"context"

	"code.hybscloud.com/atomix"
)

const (
	pendingUnresolved = 0
	pendingResolved   = 1
)

// PendingResponse pairs a submitted request with its future response.
//
// A handle is created by Submit and resolved exactly once, with either a
// response or an error. Resolution is a single atomic transition; after it
// the handle is immutable. The second and later resolution attempts are
// no-ops.
//
// Waiters observe resolution through the done channel; Result and Wait wrap
// it. The handle does not reference the batcher, and abandoning a handle
// does not cancel the in-flight batch that contains it.
type PendingResponse[Req, Resp any] struct {
	request  Req
	state    atomix.Uint32
	done     chan struct{}
	response Resp
	err      error
}

func newPendingResponse[Req, Resp any](request Req) *PendingResponse[Req, Resp] {
	return &PendingResponse[Req, Resp]{
		request: request,
		done:    make(chan struct{}),
	}
}

// Request returns the submitted request value.
func (p *PendingResponse[Req, Resp]) Request() Req {
	return p.request
}

// Done returns a channel closed when the handle is resolved.
func (p *PendingResponse[Req, Resp]) Done() <-chan struct{} {
	return p.done
}

// Resolved reports whether the handle has been resolved.
func (p *PendingResponse[Req, Resp]) Resolved() bool {
	return p.state.LoadAcquire() == pendingResolved
}

// Result blocks until the handle is resolved, then returns the response or
// the resolution error. Use Wait to bound the block with a context.
func (p *PendingResponse[Req, Resp]) Result() (Resp, error) {
	<-p.done
	return p.response, p.err
}

// Wait blocks until the handle is resolved or ctx is done.
//
// On ctx expiry Wait returns ctx.Err() without resolving the handle: the
// in-flight batch still completes it, and a later Result call observes that
// outcome.
func (p *PendingResponse[Req, Resp]) Wait(ctx context.Context) (Resp, error) {
	select {
	case <-p.done:
		return p.response, p.err
	case <-ctx.Done():
		var zero Resp
		return zero, ctx.Err()
	}
}

// setResponse resolves the handle with a response.
// Returns false if the handle was already resolved.
func (p *PendingResponse[Req, Resp]) setResponse(response Resp) bool {
	if !p.state.CompareAndSwapAcqRel(pendingUnresolved, pendingResolved) {
		return false
	}
	p.response = response
	close(p.done)
	return true
}

// setError resolves the handle with an error.
// Returns false if the handle was already resolved.
func (p *PendingResponse[Req, Resp]) setError(err error) bool {
	if !p.state.CompareAndSwapAcqRel(pendingUnresolved, pendingResolved) {
		return false
	}
	p.err = err
	close(p.done)
	return true
}
