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

package workpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sabouaram/kaplar/workpool"
)

func TestDispatchRunsExactlyOnce(t *testing.T) {
	p := workpool.New(1024, 4)
	defer p.Shutdown()

	const n = 1000
	var counter int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		if err := p.Dispatch(func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		}); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected all tasks to complete")
	}

	if got := atomic.LoadInt64(&counter); got != n {
		t.Fatalf("expected counter == %d, got %d", n, got)
	}
}

func TestDispatchRefusesWhenFull(t *testing.T) {
	p := workpool.New(1, 0)
	defer p.Shutdown()

	block := make(chan struct{})
	// occupy the single worker so the ring backs up.
	p.Dispatch(func() { <-block })
	time.Sleep(20 * time.Millisecond)

	if err := p.Dispatch(func() {}); err != nil {
		t.Fatalf("expected the ring slot to still be free: %v", err)
	}
	if err := p.Dispatch(func() {}); err == nil {
		t.Fatalf("expected ErrRingFull once ring capacity is spent")
	} else if !err.IsCode(workpool.ErrRingFull) {
		t.Fatalf("expected ErrRingFull code, got %v", err.GetCode())
	}
	close(block)
}

func TestMultiDispatchAllOrNothing(t *testing.T) {
	p := workpool.New(2, 0)
	defer p.Shutdown()

	block := make(chan struct{})
	p.Dispatch(func() { <-block })
	time.Sleep(20 * time.Millisecond)

	// the worker has taken the blocking task, so the ring is empty; a batch
	// of 2 still meets len+n >= cap (0+2 >= 2) and must be refused entirely.
	tasks := []workpool.Task{func() {}, func() {}}
	if err := p.MultiDispatch(tasks); err == nil {
		t.Fatalf("expected MultiDispatch to refuse an oversized batch")
	}
	close(block)
}

func TestShutdownWaitsForWorkers(t *testing.T) {
	p := workpool.New(4, 2)
	var ran int64
	for i := 0; i < 4; i++ {
		p.Dispatch(func() { atomic.AddInt64(&ran, 1) })
	}
	p.Shutdown()
	if atomic.LoadInt64(&ran) != 4 {
		t.Fatalf("expected all tasks drained before shutdown returns, got %d", ran)
	}
	if err := p.Dispatch(func() {}); err == nil {
		t.Fatalf("expected dispatch after shutdown to fail")
	} else if !err.IsCode(workpool.ErrShutDown) {
		t.Fatalf("expected ErrShutDown code, got %v", err.GetCode())
	}
}

func TestWorkerCountAtLeastOne(t *testing.T) {
	if workpool.WorkerCount() < 1 {
		t.Fatalf("expected worker count >= 1")
	}
}
