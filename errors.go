// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batcher

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Fifo.TryAppend: the queue is full (backpressure).
//
// ErrWouldBlock is a control flow signal, not a failure. Submit handles it
// internally by sleeping and retrying; direct Fifo users should retry with
// backoff rather than propagating the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrResponseCount indicates a Multiplexer contract violation: the response
// list length did not match the request list length.
//
// Every pending response in the affected batch is resolved with an error
// wrapping ErrResponseCount. The worker survives and continues to the next
// batch; later submissions are unaffected.
//
// Match with errors.Is:
//
//	if _, err := pr.Result(); errors.Is(err, batcher.ErrResponseCount) {
//	    // the multiplexer returned a wrong-length response list
//	}
var ErrResponseCount = errors.New("batcher: response count mismatch")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
