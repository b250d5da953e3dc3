/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package startstop wraps a pair of (possibly blocking) start/stop functions
// into a restartable, uptime-tracking lifecycle, the shape the server driver
// needs around Serve/Shutdown.
package startstop

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Func is a start or stop callback. Start functions are expected to block
// until their context is cancelled; stop functions run to perform cleanup
// and return.
type Func func(ctx context.Context) error

// StartStop is a restartable lifecycle around a start/stop function pair.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

type runner struct {
	mu        sync.Mutex
	start     Func
	stop      Func
	cancel    context.CancelFunc
	running   bool
	startedAt time.Time
	errs      []error
}

// New builds a StartStop around start/stop. Either may be nil; invoking a
// nil function records an "invalid start/stop function" error instead of
// panicking.
func New(start, stop Func) StartStop {
	return &runner{start: start, stop: stop}
}

func (r *runner) recordErr(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// Start stops any previous instance, then launches start in a new goroutine
// bound to a child of ctx. Start itself never blocks on the callback.
func (r *runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running && r.cancel != nil {
		r.cancel()
	}

	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.startedAt = time.Now()
	start := r.start
	r.mu.Unlock()

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.recordErr(fmt.Errorf("panic in start function: %v", rec))
			}
			r.mu.Lock()
			r.running = false
			r.mu.Unlock()
		}()

		if start == nil {
			r.recordErr(fmt.Errorf("invalid start function"))
			return
		}
		if err := start(cctx); err != nil {
			r.recordErr(err)
		}
	}()

	return nil
}

// Stop cancels the running start function's context and runs stop. Safe to
// call when not running, and safe to call more than once.
func (r *runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	stop := r.stop
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.recordErr(fmt.Errorf("panic in stop function: %v", rec))
		}
	}()

	if stop == nil {
		r.recordErr(fmt.Errorf("invalid stop function"))
		return nil
	}
	if err := stop(ctx); err != nil {
		r.recordErr(err)
	}
	return nil
}

// Restart stops then starts, even if not currently running.
func (r *runner) Restart(ctx context.Context) error {
	_ = r.Stop(ctx)
	return r.Start(ctx)
}

func (r *runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Uptime is zero before the first Start.
func (r *runner) Uptime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return time.Since(r.startedAt)
}

func (r *runner) ErrorsLast() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[len(r.errs)-1]
}

func (r *runner) ErrorsList() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}
