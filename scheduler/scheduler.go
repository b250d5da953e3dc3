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

// Package scheduler is a min-ordered set of timed tasks with cancellable
// handles and a single timer goroutine, used by the connection runtime for
// read/write deadlines and by protocol code for delayed work. It is the
// direct translation of the deadline-ordered avltree the original server
// kept beside its epoll loop, re-expressed around a sync.Cond instead of a
// condvar + manual futex wait, which is the idiomatic Go equivalent.
package scheduler

import (
	"sync"
	"time"

	"github.com/sabouaram/kaplar/avltree"
	"github.com/sabouaram/kaplar/errors"
	"github.com/sabouaram/kaplar/workpool"
)

func init() {
	errors.Register(errors.MinPkgScheduler+1, "scheduler already shut down")
}

// ErrShutDown is returned by Add once the scheduler has been stopped.
var ErrShutDown = errors.MinPkgScheduler + 1

// Task is the callback invoked when an entry's deadline elapses.
type Task func()

// Handle identifies a pending entry, valid until it fires or is cancelled.
type Handle uint64

type key struct {
	deadline int64 // unix nanos
	seq      uint64
}

func keyCmp(a, b key) int {
	switch {
	case a.deadline < b.deadline:
		return -1
	case a.deadline > b.deadline:
		return 1
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

type entry struct {
	handle Handle
	task   Task
}

// Scheduler runs one background goroutine that fires entries in
// non-decreasing deadline order, breaking ties by insertion order.
type Scheduler struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tree     *avltree.Tree[key, entry]
	byHandle map[Handle]key
	seq      uint64
	nextH    Handle
	running  bool
	done     chan struct{}
	pool     *workpool.Pool

	now func() time.Time
}

// SetPool routes every fired task through pool instead of running it
// inline on the timer goroutine, so a slow deadline callback (e.g.
// aborting a connection) doesn't delay the next entry's fire time. If
// Dispatch refuses (pool full or shut down), the task still runs inline
// as a fallback rather than being dropped.
func (s *Scheduler) SetPool(pool *workpool.Pool) {
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
}

// New creates and starts a Scheduler.
func New() *Scheduler {
	s := &Scheduler{
		tree:     avltree.New[key, entry](1024, keyCmp),
		byHandle: make(map[Handle]key),
		running:  true,
		done:     make(chan struct{}),
		now:      time.Now,
	}
	s.cond = sync.NewCond(&s.mu)
	go s.loop()
	return s
}

// Add schedules task to run after delay, returning a cancellable handle.
func (s *Scheduler) Add(delay time.Duration, task Task) (Handle, errors.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return 0, ErrShutDown.Error()
	}

	s.nextH++
	h := s.nextH
	s.seq++
	k := key{deadline: s.now().Add(delay).UnixNano(), seq: s.seq}

	if _, err := s.tree.Insert(k, entry{handle: h, task: task}); err != nil {
		return 0, err
	}
	s.byHandle[h] = k
	s.cond.Signal()
	return h, nil
}

// Cancel removes a pending entry. It is idempotent: cancelling an entry
// that has already fired, or was never valid, is a harmless no-op - this
// is what keeps it safe against a fire racing a cancel from another
// goroutine, since both sides take the same mutex before touching the
// tree.
func (s *Scheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(h)
}

func (s *Scheduler) cancelLocked(h Handle) {
	k, ok := s.byHandle[h]
	if !ok {
		return
	}
	delete(s.byHandle, h)
	if nh, found := s.tree.Find(k); found {
		s.tree.Remove(nh)
	}
}

// Pop is an alias for Cancel, matching the original's naming.
func (s *Scheduler) Pop(h Handle) {
	s.Cancel(h)
}

// Shutdown stops the timer goroutine. Pending entries never fire.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	s.running = false
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if !s.running {
			return
		}

		h := s.tree.First()
		if h == 0 {
			s.cond.Wait()
			continue
		}

		k := s.tree.Key(h)
		wait := time.Until(time.Unix(0, k.deadline))
		if wait > 0 {
			s.waitTimeout(wait)
			continue
		}

		e := *s.tree.Value(h)
		s.tree.Remove(h)
		delete(s.byHandle, e.handle)
		pool := s.pool

		// run without holding the scheduler mutex, so the task may itself
		// call Add/Cancel without deadlocking.
		s.mu.Unlock()
		runTask := func() {
			defer func() { recover() }()
			e.task()
		}
		if pool == nil || pool.Dispatch(runTask) != nil {
			runTask()
		}
		s.mu.Lock()
	}
}

// waitTimeout blocks on the condvar for at most d, using a helper
// goroutine to translate a timer into a Broadcast since sync.Cond has no
// native timed wait.
func (s *Scheduler) waitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()
	s.cond.Wait()
}
