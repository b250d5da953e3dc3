/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package sem bounds the connection acceptor's fan-out with a
// context-aware semaphore: a weighted limit when a bound is given,
// or an unlimited WaitGroup-backed one when the caller asks for no cap at
// all. Both flavors double as a context.Context so a caller can select on
// Done() the same way it would on any cancellation signal.
package sem

import (
	"context"
	"runtime"
)

// Sem is satisfied by both the weighted and the unlimited implementation.
// Embedding context.Context lets every instance double as a cancellation
// signal tied to DeferMain.
type Sem interface {
	context.Context

	// NewWorker blocks until a slot is available or the context is done.
	NewWorker() error
	// NewWorkerTry acquires a slot without blocking, returning false if
	// none is immediately available.
	NewWorkerTry() bool
	// DeferWorker releases a slot acquired by NewWorker/NewWorkerTry.
	DeferWorker()
	// WaitAll blocks until every outstanding worker has called
	// DeferWorker, or the context is done.
	WaitAll() error
	// Weighted reports the configured limit, or -1 for unlimited.
	Weighted() int64
	// New returns an independent semaphore of the same kind and limit,
	// deriving its context from this one.
	New() Sem
	// DeferMain cancels this semaphore's context. Safe to call more than
	// once.
	DeferMain()
}

// MaxSimultaneous is the default limit used when New is given zero: the
// number of logical CPUs the runtime will schedule onto.
func MaxSimultaneous() int {
	return runtime.GOMAXPROCS(0)
}

// SetSimultaneous clamps n into [1, MaxSimultaneous()], substituting
// MaxSimultaneous() for any n outside that range.
func SetSimultaneous(n int64) int64 {
	max := int64(MaxSimultaneous())
	if n < 1 || n > max {
		return max
	}
	return n
}

// New returns a Sem bounded to nbrSimultaneous concurrent workers. Zero
// resolves to MaxSimultaneous(); a negative value returns an unlimited,
// WaitGroup-backed semaphore instead of a weighted one.
func New(ctx context.Context, nbrSimultaneous int) Sem {
	if nbrSimultaneous < 0 {
		return newWaitGroupSem(ctx)
	}

	limit := int64(nbrSimultaneous)
	if nbrSimultaneous == 0 {
		limit = int64(MaxSimultaneous())
	}
	return newWeightedSem(ctx, limit)
}
