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

// Package item is a single cache slot holding a value with an expiration
// duration measured from its last Store. It backs the cache package but is
// also usable standalone for one-off expiring values such as a login
// challenge nonce.
package item

import (
	"sync/atomic"
	"time"
)

// Item is a single expiring cache slot, safe for concurrent use.
type Item[T any] interface {
	// Check reports whether the item still holds a valid value.
	Check() bool
	// Clean discards the stored value, marking the item invalid.
	Clean()
	// Duration returns the configured expiration window.
	Duration() time.Duration
	// Remain returns the time left before expiration and whether the item
	// is still valid.
	Remain() (time.Duration, bool)
	// Store saves val and resets the expiration timer.
	Store(val T)
	// Load returns the stored value if still valid.
	Load() (T, bool)
	// LoadRemain returns the stored value, remaining time, and validity.
	LoadRemain() (T, time.Duration, bool)
}

type itm[T any] struct {
	e time.Duration
	k atomic.Bool
	t atomic.Value
	v atomic.Value
}

// New creates an item that expires exp after being stored. exp of 0 means
// the item never expires.
func New[T any](exp time.Duration, val T) Item[T] {
	o := &itm[T]{e: exp}
	o.clean()
	o.Store(val)
	return o
}

func (o *itm[T]) Check() bool {
	_, _, ok := o.LoadRemain()
	return ok
}

func (o *itm[T]) Clean() {
	o.clean()
}

func (o *itm[T]) Duration() time.Duration {
	return o.e
}

func (o *itm[T]) Remain() (time.Duration, bool) {
	_, r, ok := o.LoadRemain()
	return r, ok
}

func (o *itm[T]) Load() (T, bool) {
	v, _, ok := o.LoadRemain()
	return v, ok
}

func (o *itm[T]) LoadRemain() (T, time.Duration, bool) {
	var zero T
	if !o.k.Load() {
		return zero, 0, false
	}

	if o.e == 0 {
		return o.value(), 0, true
	}

	ts, _ := o.t.Load().(time.Time)
	if ts.IsZero() {
		o.clean()
		return zero, 0, false
	}

	r := time.Since(ts)
	if r >= o.e {
		o.clean()
		return zero, 0, false
	}

	return o.value(), o.e - r, true
}

func (o *itm[T]) Store(val T) {
	o.v.Store(boxed[T]{val: val})
	o.t.Store(time.Now())
	o.k.Store(true)
}

func (o *itm[T]) clean() {
	var zero T
	o.k.Store(false)
	o.t.Store(time.Time{})
	o.v.Store(boxed[T]{val: zero})
}

func (o *itm[T]) value() T {
	b, _ := o.v.Load().(boxed[T])
	return b.val
}

// boxed wraps T so atomic.Value accepts any T, including interface and
// non-comparable types, without the "inconsistently typed value" panic
// atomic.Value raises when storing differently-shaped concrete types.
type boxed[T any] struct {
	val T
}
