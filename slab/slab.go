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

// Package slab implements a fixed-stride memory arena: O(1) alloc/free
// through a LIFO free-list backed by a bump pointer, in the spirit of the
// original kaplarcpp slab.c. Go can't hand out raw pointers into a byte
// arena the way C can (the GC would have no idea objects live there), so
// slots are identified by a Handle (an index) instead of an address; the
// handle is what the rest of the networking core (avltree nodes, scheduler
// entries) holds onto as its "stable reference".
package slab

import (
	liberr "github.com/sabouaram/kaplar/errors"
)

func init() {
	liberr.Register(liberr.MinPkgSlab+1, "slab exhausted")
	liberr.Register(liberr.MinPkgSlab+2, "handle out of range")
}

// ErrExhausted is returned by Alloc when both the free-list and the bump
// region are spent.
var ErrExhausted = liberr.MinPkgSlab + 1

// ErrOutOfRange is returned by Free when the handle was never allocated by
// this slab (§9 Open Question: the spec mandates the half-open check
// `p < base+capacity`; Go's handle-indexed slab makes this a bounds check
// on the index instead of a pointer comparison, closing that ambiguity).
var ErrOutOfRange = liberr.MinPkgSlab + 2

// Handle identifies a slot within a Slab. The zero Handle is never valid
// (handle 0 is reserved as the "no handle" sentinel, matching a null
// pointer/iterator in the original).
type Handle uint32

const noHandle Handle = 0

// Slab is a fixed-capacity pool of N slots holding values of type T.
// It is not safe for concurrent use; callers needing concurrency (the
// size-class allocator, the avltree) add their own lock.
type Slab[T any] struct {
	slots    []T
	used     []bool
	free     []Handle // LIFO free-list
	bump     int      // next unused slot index
	capacity int
}

// New creates a Slab with room for capacity slots.
func New[T any](capacity int) *Slab[T] {
	return &Slab[T]{
		slots:    make([]T, capacity),
		used:     make([]bool, capacity),
		capacity: capacity,
	}
}

// Alloc returns a handle to a zero-valued slot, taking from the free-list
// head first (LIFO) and falling back to the bump pointer. Returns
// ErrExhausted when both are spent.
func (s *Slab[T]) Alloc() (Handle, liberr.Error) {
	if n := len(s.free); n > 0 {
		h := s.free[n-1]
		s.free = s.free[:n-1]
		s.used[h-1] = true
		var zero T
		s.slots[h-1] = zero
		return h, nil
	}
	if s.bump < s.capacity {
		h := Handle(s.bump + 1)
		s.bump++
		s.used[h-1] = true
		return h, nil
	}
	return noHandle, ErrExhausted.Error()
}

// Get returns a pointer to the slot's value for in-place mutation.
func (s *Slab[T]) Get(h Handle) *T {
	if !s.valid(h) {
		return nil
	}
	return &s.slots[h-1]
}

// Free releases a handle. If it was the most recently bumped slot, the
// bump pointer is reclaimed (tail-reclaim keeps sequential alloc/free
// loops O(1) and fragmentation-free, exactly like slab_free in slab.c);
// otherwise it is threaded onto the free-list.
func (s *Slab[T]) Free(h Handle) liberr.Error {
	if !s.valid(h) {
		return ErrOutOfRange.Error()
	}
	idx := int(h - 1)
	s.used[idx] = false
	if idx == s.bump-1 {
		s.bump--
		// tail-reclaim may expose a previously-freed slot that is now
		// itself the new tail; the free-list is left as-is since it is
		// still a valid (if slightly suboptimal) list of free slots.
	} else {
		s.free = append(s.free, h)
	}
	return nil
}

func (s *Slab[T]) valid(h Handle) bool {
	if h == noHandle || int(h) > s.capacity {
		return false
	}
	idx := int(h - 1)
	return s.used[idx]
}

// IsFull reports whether both the bump region and the free-list are spent.
func (s *Slab[T]) IsFull() bool {
	return s.bump >= s.capacity && len(s.free) == 0
}

// IsEmpty reports whether no slot is currently live.
func (s *Slab[T]) IsEmpty() bool {
	return s.bump == len(s.free)
}

// Capacity returns the total slot count.
func (s *Slab[T]) Capacity() int {
	return s.capacity
}
