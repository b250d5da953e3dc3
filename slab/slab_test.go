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

package slab_test

import (
	"testing"

	"github.com/sabouaram/kaplar/slab"
)

func TestAllocBumpsThenFails(t *testing.T) {
	s := slab.New[int](3)

	var handles []slab.Handle
	for i := 0; i < 3; i++ {
		h, err := s.Alloc()
		if err != nil {
			t.Fatalf("unexpected alloc error: %v", err)
		}
		handles = append(handles, h)
	}

	if !s.IsFull() {
		t.Fatalf("expected slab to report full after exhausting capacity")
	}

	if _, err := s.Alloc(); err == nil {
		t.Fatalf("expected ErrExhausted once capacity is spent")
	} else if !err.IsCode(slab.ErrExhausted) {
		t.Fatalf("expected ErrExhausted code, got %v", err.GetCode())
	}

	_ = handles
}

func TestFreeTailReclaim(t *testing.T) {
	s := slab.New[int](4)

	a, _ := s.Alloc()
	b, _ := s.Alloc()
	c, _ := s.Alloc()

	// freeing the most recently bumped slot (c) must reclaim the bump
	// pointer rather than thread it onto the free-list.
	if err := s.Free(c); err != nil {
		t.Fatalf("unexpected free error: %v", err)
	}

	d, err := s.Alloc()
	if err != nil {
		t.Fatalf("unexpected alloc error: %v", err)
	}
	if d != c {
		t.Fatalf("expected tail-reclaim to reissue handle %d, got %d", c, d)
	}

	_ = a
	_ = b
}

func TestFreeThreadsFreeList(t *testing.T) {
	s := slab.New[int](4)

	a, _ := s.Alloc()
	b, _ := s.Alloc()
	_, _ = s.Alloc()

	// freeing a non-tail slot must not move the bump pointer; the next
	// Alloc should come from the free-list instead of growing further.
	if err := s.Free(a); err != nil {
		t.Fatalf("unexpected free error: %v", err)
	}

	reused, err := s.Alloc()
	if err != nil {
		t.Fatalf("unexpected alloc error: %v", err)
	}
	if reused != a {
		t.Fatalf("expected free-list reuse of handle %d, got %d", a, reused)
	}

	_ = b
}

func TestFreeOutOfRange(t *testing.T) {
	s := slab.New[int](2)

	if err := s.Free(slab.Handle(99)); err == nil {
		t.Fatalf("expected ErrOutOfRange for a handle never allocated")
	} else if !err.IsCode(slab.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange code, got %v", err.GetCode())
	}

	h, _ := s.Alloc()
	if err := s.Free(h); err != nil {
		t.Fatalf("unexpected free error: %v", err)
	}
	// double-free of a handle already returned must also be rejected.
	if err := s.Free(h); err == nil {
		t.Fatalf("expected double-free to be rejected")
	}
}

func TestIsEmpty(t *testing.T) {
	s := slab.New[int](2)
	if !s.IsEmpty() {
		t.Fatalf("fresh slab must report empty")
	}

	a, _ := s.Alloc()
	b, _ := s.Alloc()
	if s.IsEmpty() {
		t.Fatalf("slab with live slots must not report empty")
	}

	_ = s.Free(a)
	_ = s.Free(b)
	if !s.IsEmpty() {
		t.Fatalf("slab with all slots freed must report empty again")
	}
}

func TestGetRoundTrip(t *testing.T) {
	s := slab.New[string](2)
	h, _ := s.Alloc()
	*s.Get(h) = "payload"
	if got := *s.Get(h); got != "payload" {
		t.Fatalf("expected payload, got %q", got)
	}
}

func TestGetInvalidHandle(t *testing.T) {
	s := slab.New[int](1)
	if s.Get(slab.Handle(0)) != nil {
		t.Fatalf("handle 0 must never resolve")
	}
	if s.Get(slab.Handle(42)) != nil {
		t.Fatalf("out-of-range handle must resolve to nil")
	}
}

func TestByteAllocatorSizeClassRouting(t *testing.T) {
	a := slab.NewByteAllocator()

	cases := []struct {
		size         int
		expectStride int
	}{
		{size: 1, expectStride: 32},
		{size: 32, expectStride: 32},
		{size: 33, expectStride: 64},
		{size: 1024, expectStride: 1024},
		{size: 1025, expectStride: 2048},
		{size: 16384, expectStride: 16384},
	}

	for _, c := range cases {
		buf, handle, err := a.Alloc(c.size)
		if err != nil {
			t.Fatalf("alloc(%d): unexpected error %v", c.size, err)
		}
		if len(buf) != c.size {
			t.Fatalf("alloc(%d): expected len %d, got %d", c.size, c.size, len(buf))
		}
		if cap(buf) != c.expectStride {
			t.Fatalf("alloc(%d): expected stride %d, got cap %d", c.size, c.expectStride, cap(buf))
		}
		if err := a.Free(handle); err != nil {
			t.Fatalf("free(%d): unexpected error %v", c.size, err)
		}
	}
}

func TestByteAllocatorOversize(t *testing.T) {
	a := slab.NewByteAllocator()
	if _, _, err := a.Alloc(16385); err == nil {
		t.Fatalf("expected error allocating beyond the largest size class")
	}
}
