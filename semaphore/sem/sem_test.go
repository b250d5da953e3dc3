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

package sem_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sabouaram/kaplar/semaphore/sem"
)

func TestWeightedRespectsLimit(t *testing.T) {
	s := sem.New(context.Background(), 2)
	defer s.DeferMain()

	if err := s.NewWorker(); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := s.NewWorker(); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- s.NewWorker() }()

	select {
	case <-done:
		t.Fatalf("third acquire should have blocked")
	case <-time.After(30 * time.Millisecond):
	}

	s.DeferWorker()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("third acquire: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("third acquire never unblocked")
	}
	s.DeferWorker()
	s.DeferWorker()
}

func TestWeightedTryDoesNotBlock(t *testing.T) {
	s := sem.New(context.Background(), 1)
	defer s.DeferMain()

	if !s.NewWorkerTry() {
		t.Fatalf("expected first try to succeed")
	}
	if s.NewWorkerTry() {
		t.Fatalf("expected second try to fail while full")
	}
	s.DeferWorker()
}

func TestWeightedZeroUsesMaxSimultaneous(t *testing.T) {
	s := sem.New(context.Background(), 0)
	defer s.DeferMain()

	if s.Weighted() != int64(sem.MaxSimultaneous()) {
		t.Fatalf("expected weighted limit %d, got %d", sem.MaxSimultaneous(), s.Weighted())
	}
}

func TestWaitGroupFlavorIsUnlimited(t *testing.T) {
	s := sem.New(context.Background(), -1)
	defer s.DeferMain()

	if s.Weighted() != -1 {
		t.Fatalf("expected -1, got %d", s.Weighted())
	}

	var wg sync.WaitGroup
	var completed atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.NewWorker(); err != nil {
				return
			}
			defer s.DeferWorker()
			completed.Add(1)
		}()
	}
	wg.Wait()

	if completed.Load() != 50 {
		t.Fatalf("expected all 50 workers to complete, got %d", completed.Load())
	}
	if err := s.WaitAll(); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
}

func TestDeferMainCancelsContext(t *testing.T) {
	s := sem.New(context.Background(), 4)

	done := s.Done()
	s.DeferMain()
	s.DeferMain() // must not panic

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Done() to close after DeferMain")
	}
	if s.Err() != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", s.Err())
	}
}

func TestNewInheritsLimitAndParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s1 := sem.New(parent, 3)
	defer s1.DeferMain()

	s2 := s1.New()
	defer s2.DeferMain()

	if s2.Weighted() != 3 {
		t.Fatalf("expected child to inherit limit 3, got %d", s2.Weighted())
	}

	cancel()
	select {
	case <-s2.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected child to inherit cancellation from parent")
	}
}

func TestSetSimultaneousClamps(t *testing.T) {
	max := sem.MaxSimultaneous()
	if sem.SetSimultaneous(0) != int64(max) {
		t.Fatalf("expected 0 to clamp to max")
	}
	if sem.SetSimultaneous(-5) != int64(max) {
		t.Fatalf("expected negative to clamp to max")
	}
	if sem.SetSimultaneous(int64(max)+100) != int64(max) {
		t.Fatalf("expected overflow to clamp to max")
	}
	if max > 1 && sem.SetSimultaneous(1) != 1 {
		t.Fatalf("expected in-range value to pass through unchanged")
	}
}
