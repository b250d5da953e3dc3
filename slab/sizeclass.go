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

package slab

import (
	"sync"

	liberr "github.com/sabouaram/kaplar/errors"
)

// firstPO2 and lastPO2 bound the size classes this allocator serves: 2^5
// (32 bytes) through 2^14 (16384 bytes), matching the cache_table in mem.c.
const (
	firstPO2 = 5
	lastPO2  = 14
	numClass = lastPO2 - firstPO2 + 1
)

// classSlots mirrors mem.c's cache_table slot counts: smaller strides get
// more slots per class since they are allocated far more often.
var classSlots = [numClass]int{256, 128, 64, 32, 16, 8, 16, 8, 16, 8}

// ByteAllocator routes byte-buffer requests to one of numClass fixed-stride
// slabs by rounding the requested size up to the next power of two, the same
// size-class dance mem.c does before delegating to slab_alloc. A single
// mutex guards every class, since callers span arbitrary goroutines
// (connection reads/writes, message buffers) and the original's cache
// table is likewise globally locked.
type ByteAllocator struct {
	mu      sync.Mutex
	classes [numClass]*Slab[[]byte]
	strides [numClass]int
}

// NewByteAllocator builds the ten size-class slabs.
func NewByteAllocator() *ByteAllocator {
	a := &ByteAllocator{}
	for i := 0; i < numClass; i++ {
		stride := 1 << uint(firstPO2+i)
		a.strides[i] = stride
		a.classes[i] = New[[]byte](classSlots[i])
	}
	return a
}

// ceilLog2Class returns the class index for size, or -1 if size exceeds the
// largest class (2^14). Mirrors ceil_log2 in mem.c.
func ceilLog2Class(size int) int {
	if size <= 0 {
		size = 1
	}
	class := firstPO2
	bound := 1 << uint(firstPO2)
	for bound < size {
		bound <<= 1
		class++
	}
	idx := class - firstPO2
	if idx < 0 || idx >= numClass {
		return -1
	}
	return idx
}

// classHandle pairs a slab handle with the class it was allocated from, so
// Free can find its way back to the right slab.
type classHandle struct {
	class int
	h     Handle
}

// Alloc returns a byte buffer of at least size bytes, backed by the
// matching size class, and an opaque handle needed to free it.
func (a *ByteAllocator) Alloc(size int) ([]byte, any, liberr.Error) {
	class := ceilLog2Class(size)
	if class < 0 {
		return nil, nil, ErrOutOfRange.Error()
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	h, err := a.classes[class].Alloc()
	if err != nil {
		return nil, nil, err
	}
	buf := a.classes[class].Get(h)
	if cap(*buf) < a.strides[class] {
		*buf = make([]byte, a.strides[class])
	}
	return (*buf)[:size], classHandle{class: class, h: h}, nil
}

// Free returns a buffer previously obtained from Alloc to its size class.
func (a *ByteAllocator) Free(handle any) liberr.Error {
	ch, ok := handle.(classHandle)
	if !ok {
		return ErrOutOfRange.Error()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.classes[ch.class].Free(ch.h)
}
