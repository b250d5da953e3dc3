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

// Package ticker is a restartable wrapper around time.Ticker, the shape the
// monitor package's periodic health checks use instead of a hand-rolled
// goroutine-plus-time.Sleep loop.
package ticker

import (
	"context"
	"sync"
	"time"
)

// minInterval is substituted for any non-positive duration passed to New.
const minInterval = time.Millisecond

// Func runs on every tick. It receives the underlying time.Ticker so it may
// Reset it to change cadence.
type Func func(ctx context.Context, tck *time.Ticker) error

// Ticker is a restartable, uptime-tracking periodic task.
type Ticker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
}

type tickerRunner struct {
	mu        sync.Mutex
	interval  time.Duration
	fn        Func
	cancel    context.CancelFunc
	done      chan struct{}
	running   bool
	startedAt time.Time
}

// New builds a Ticker that fires fn every d. fn may be nil, in which case
// ticks are simply discarded.
func New(d time.Duration, fn Func) Ticker {
	if d <= 0 {
		d = minInterval
	}
	return &tickerRunner{interval: d, fn: fn}
}

// Start stops any previous instance (waiting for its goroutine to exit),
// then launches a new tick loop bound to a child of ctx. Running and
// uptime reflect the new instance by the time Start returns.
func (r *tickerRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.cancel()
		prevDone := r.done
		r.mu.Unlock()
		<-prevDone
		r.mu.Lock()
	}

	cctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done
	r.running = true
	r.startedAt = time.Now()
	fn := r.fn
	interval := r.interval
	r.mu.Unlock()

	go r.loop(cctx, done, interval, fn)
	return nil
}

func (r *tickerRunner) loop(ctx context.Context, done chan struct{}, interval time.Duration, fn Func) {
	defer close(done)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if fn != nil {
				r.runOnce(ctx, t, fn)
			}
		}
	}
}

func (r *tickerRunner) runOnce(ctx context.Context, t *time.Ticker, fn Func) {
	defer func() { recover() }()
	_ = fn(ctx, t)
}

// Stop cancels the tick loop and waits for it to exit. Safe to call when
// not running, and safe to call more than once.
func (r *tickerRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel := r.cancel
	done := r.done
	r.startedAt = time.Time{}
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

// Restart stops then starts, even if not currently running.
func (r *tickerRunner) Restart(ctx context.Context) error {
	_ = r.Stop(ctx)
	return r.Start(ctx)
}

func (r *tickerRunner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Uptime is zero before the first Start and after Stop.
func (r *tickerRunner) Uptime() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startedAt.IsZero() {
		return 0
	}
	return time.Since(r.startedAt)
}
