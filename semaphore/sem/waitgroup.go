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

package sem

import (
	"context"
	"sync"
)

// waitGroupSem is the unlimited flavor: every NewWorker succeeds and
// WaitAll waits on a sync.WaitGroup, returning early if the context is done.
type waitGroupSem struct {
	context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newWaitGroupSem(ctx context.Context) Sem {
	cctx, cancel := context.WithCancel(ctx)
	return &waitGroupSem{Context: cctx, cancel: cancel}
}

func (s *waitGroupSem) NewWorker() error {
	s.wg.Add(1)
	return nil
}

func (s *waitGroupSem) NewWorkerTry() bool {
	s.wg.Add(1)
	return true
}

func (s *waitGroupSem) DeferWorker() {
	s.wg.Done()
}

func (s *waitGroupSem) WaitAll() error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-s.Context.Done():
	}
	return s.Context.Err()
}

func (s *waitGroupSem) Weighted() int64 {
	return -1
}

func (s *waitGroupSem) New() Sem {
	return newWaitGroupSem(s.Context)
}

func (s *waitGroupSem) DeferMain() {
	s.cancel()
}
