/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package workpool is the bounded background work pool protocol handlers
// submit CPU-bound callbacks to, off the server driver goroutine. The
// original rings a fixed-capacity buffer behind a mutex + condvar; a
// buffered Go channel is the idiomatic equivalent (push = non-blocking
// send, worker loop = blocking receive) and is what this package uses in
// place of a hand-rolled ring, while keeping the same dispatch/
// multi-dispatch surface and FIFO-per-producer ordering guarantee.
package workpool

import (
	"runtime"
	"sync"

	"github.com/sabouaram/kaplar/errors"
	"github.com/shirou/gopsutil/cpu"
)

func init() {
	errors.Register(errors.MinPkgWorkPool+1, "work ring full")
	errors.Register(errors.MinPkgWorkPool+2, "work pool shut down")
}

// ErrRingFull is returned by Dispatch/MultiDispatch when the ring has no
// room for the new task(s).
var ErrRingFull = errors.MinPkgWorkPool + 1

// ErrShutDown is returned once Shutdown has been called.
var ErrShutDown = errors.MinPkgWorkPool + 2

// Task is a unit of work executed by a worker goroutine.
type Task func()

// Pool is a fixed-capacity FIFO of tasks drained by a fixed worker count.
type Pool struct {
	mu      sync.Mutex
	ring    chan Task
	running bool
	wg      sync.WaitGroup
	cap     int
}

// WorkerCount returns max(1, logical cpu count - 1), the same sizing rule
// as the original's sys_cpu_count() - 1. gopsutil is used here (rather
// than runtime.NumCPU) so the count reflects the same host-topology
// source the rest of the ambient stack relies on for metrics.
func WorkerCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		n = runtime.NumCPU()
	}
	if n <= 1 {
		return 1
	}
	return n - 1
}

// New creates and starts a Pool with the given ring capacity (rounded up
// to the next power of two is not required in the Go channel encoding,
// unlike the original's ring buffer) and worker count.
func New(capacity, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		ring:    make(chan Task, capacity),
		running: true,
		cap:     capacity,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.ring {
		task()
	}
}

// Dispatch enqueues a single task, returning ErrRingFull if the ring is at
// capacity rather than blocking the caller.
func (p *Pool) Dispatch(w Task) errors.Error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return ErrShutDown.Error()
	}
	p.mu.Unlock()

	select {
	case p.ring <- w:
		return nil
	default:
		return ErrRingFull.Error()
	}
}

// MultiDispatch enqueues every task in ws as one atomic batch: either all
// of them fit in the remaining ring capacity or none are enqueued,
// matching the original's "refuse if size+n >= K, else push all" rule.
func (p *Pool) MultiDispatch(ws []Task) errors.Error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrShutDown.Error()
	}
	if len(p.ring)+len(ws) >= cap(p.ring) {
		return ErrRingFull.Error()
	}
	for _, w := range ws {
		p.ring <- w
	}
	return nil
}

// Shutdown stops accepting new tasks, lets queued tasks drain, and waits
// for every worker to exit.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.ring)
	p.mu.Unlock()
	p.wg.Wait()
}
