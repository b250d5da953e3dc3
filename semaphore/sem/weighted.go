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

	"golang.org/x/sync/semaphore"
)

type weightedSem struct {
	context.Context
	cancel context.CancelFunc
	weight *semaphore.Weighted
	limit  int64
}

func newWeightedSem(ctx context.Context, limit int64) Sem {
	cctx, cancel := context.WithCancel(ctx)
	return &weightedSem{
		Context: cctx,
		cancel:  cancel,
		weight:  semaphore.NewWeighted(limit),
		limit:   limit,
	}
}

func (s *weightedSem) NewWorker() error {
	return s.weight.Acquire(s.Context, 1)
}

func (s *weightedSem) NewWorkerTry() bool {
	return s.weight.TryAcquire(1)
}

func (s *weightedSem) DeferWorker() {
	s.weight.Release(1)
}

// WaitAll acquires the full weight, which only succeeds once every
// outstanding partial acquisition has been released, then immediately
// releases it back so the semaphore remains usable afterwards.
func (s *weightedSem) WaitAll() error {
	if err := s.weight.Acquire(s.Context, s.limit); err != nil {
		return err
	}
	s.weight.Release(s.limit)
	return nil
}

func (s *weightedSem) Weighted() int64 {
	return s.limit
}

func (s *weightedSem) New() Sem {
	return newWeightedSem(s.Context, s.limit)
}

func (s *weightedSem) DeferMain() {
	s.cancel()
}
