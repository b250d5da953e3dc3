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

// Package context is a generic, concurrent key/value registry bound to a
// context.Context, used to hold the application's named long-lived
// components (config store, logger, scheduler, work pool, ...) so a
// shutdown path can walk them uniformly instead of threading every
// component through every function signature.
package context

import (
	"context"
	"sync"
)

// FuncWalk is called for every key/value pair during Walk/WalkLimit. Return
// false to stop iterating early.
type FuncWalk[T comparable] func(key T, val any) bool

// Config is a concurrent map of T to any, doubling as a context.Context so
// a cancellation signal can be carried alongside the registry.
type Config[T comparable] interface {
	context.Context

	Load(key T) (val any, ok bool)
	Store(key T, val any)
	Delete(key T)
	Clean()
	LoadOrStore(key T, val any) (actual any, loaded bool)
	LoadAndDelete(key T) (val any, loaded bool)

	// Walk visits every entry in no particular order.
	Walk(fct FuncWalk[T])
	// WalkLimit visits only the given keys, skipping any not present.
	WalkLimit(fct FuncWalk[T], keys ...T)

	// Clone returns an independent registry with a copy of the current
	// entries, bound to ctx (or this Config's own context if ctx is nil).
	Clone(ctx context.Context) Config[T]
	// Merge copies every entry of other into this registry, overwriting
	// on key collision. Returns false if other is nil.
	Merge(other Config[T]) bool
}

type ccx[T comparable] struct {
	context.Context
	m sync.Map
}

// New returns an empty Config bound to ctx (context.Background if nil).
func New[T comparable](ctx context.Context) Config[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	return &ccx[T]{Context: ctx}
}

func (c *ccx[T]) Load(key T) (any, bool) {
	return c.m.Load(key)
}

func (c *ccx[T]) Store(key T, val any) {
	if val == nil {
		c.m.Delete(key)
		return
	}
	c.m.Store(key, val)
}

func (c *ccx[T]) Delete(key T) {
	c.m.Delete(key)
}

func (c *ccx[T]) Clean() {
	c.m.Range(func(k, _ any) bool {
		c.m.Delete(k)
		return true
	})
}

func (c *ccx[T]) LoadOrStore(key T, val any) (any, bool) {
	return c.m.LoadOrStore(key, val)
}

func (c *ccx[T]) LoadAndDelete(key T) (any, bool) {
	return c.m.LoadAndDelete(key)
}

func (c *ccx[T]) Walk(fct FuncWalk[T]) {
	if fct == nil {
		return
	}
	c.m.Range(func(k, v any) bool {
		return fct(k.(T), v)
	})
}

func (c *ccx[T]) WalkLimit(fct FuncWalk[T], keys ...T) {
	if fct == nil {
		return
	}
	for _, k := range keys {
		if v, ok := c.m.Load(k); ok {
			if !fct(k, v) {
				return
			}
		}
	}
}

func (c *ccx[T]) Clone(ctx context.Context) Config[T] {
	if ctx == nil {
		ctx = c.Context
	}
	n := New[T](ctx).(*ccx[T])
	c.m.Range(func(k, v any) bool {
		n.m.Store(k, v)
		return true
	})
	return n
}

func (c *ccx[T]) Merge(other Config[T]) bool {
	if other == nil {
		return false
	}
	other.Walk(func(key T, val any) bool {
		c.Store(key, val)
		return true
	})
	return true
}
