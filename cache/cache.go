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

// Package cache is a generic, context-bound map of expiring values, used to
// track short-lived per-connection state such as a login handshake's nonce
// or a replay-protection window, without needing a bespoke sweeper
// goroutine per caller.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sabouaram/kaplar/cache/item"
)

// FuncWalk is called for every live entry during Walk. Return false to stop
// early.
type FuncWalk[K comparable, V any] func(key K, val V, remain time.Duration) bool

// Cache is a concurrent, expiring map of K to V, doubling as a
// context.Context so Close can be driven by cancellation as well as an
// explicit call.
type Cache[K comparable, V any] interface {
	context.Context

	// Close stops the background sweeper and clears the cache.
	Close()
	// Clean discards every entry immediately, expired or not.
	Clean()
	// Expire sweeps and discards any entry whose expiration has passed.
	Expire()

	Walk(fct FuncWalk[K, V])
	Load(key K) (val V, remain time.Duration, ok bool)
	Store(key K, val V) time.Duration
	Delete(key K)
	LoadOrStore(key K, val V) (actual V, remain time.Duration, loaded bool)
	LoadAndDelete(key K) (val V, loaded bool)

	// Clone returns an independent cache carrying the same live entries,
	// bound to ctx (or this cache's own context if ctx is nil) and using
	// exp as its expiration window (or this cache's own if exp is below a
	// microsecond).
	Clone(ctx context.Context, exp time.Duration) Cache[K, V]
	// Merge copies every live entry of other into this cache.
	Merge(other Cache[K, V])
}

type cc[K comparable, V any] struct {
	context.Context
	cancel context.CancelFunc

	mu sync.RWMutex
	m  map[K]item.Item[V]
	e  time.Duration

	sweepOnce sync.Once
	closed    chan struct{}
}

// sweepInterval bounds how often the background goroutine (started by New,
// stopped by Close) sweeps for
// expired entries when the cache's own expiration window would make a
// per-tick sweep wasteful (very long or zero expirations).
const sweepInterval = time.Second

// New returns an empty Cache bound to ctx (context.Background if nil),
// whose entries expire after exp (never, if exp is 0).
func New[K comparable, V any](ctx context.Context, exp time.Duration) Cache[K, V] {
	if ctx == nil {
		ctx = context.Background()
	}
	cctx, cancel := context.WithCancel(ctx)

	n := &cc[K, V]{
		Context: cctx,
		cancel:  cancel,
		m:       make(map[K]item.Item[V]),
		e:       exp,
		closed:  make(chan struct{}),
	}

	interval := exp
	if interval <= 0 || interval > sweepInterval {
		interval = sweepInterval
	}
	go n.sweep(interval)

	return n
}

func (c *cc[K, V]) sweep(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			c.Expire()
		case <-c.Context.Done():
			c.Clean()
			return
		case <-c.closed:
			c.Clean()
			return
		}
	}
}

func (c *cc[K, V]) Close() {
	c.sweepOnce.Do(func() {
		close(c.closed)
		c.cancel()
	})
}

func (c *cc[K, V]) Clean() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[K]item.Item[V])
}

func (c *cc[K, V]) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, it := range c.m {
		if !it.Check() {
			delete(c.m, k)
		}
	}
}

func (c *cc[K, V]) Walk(fct FuncWalk[K, V]) {
	if fct == nil {
		return
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for k, it := range c.m {
		v, r, ok := it.LoadRemain()
		if !ok {
			continue
		}
		if !fct(k, v, r) {
			return
		}
	}
}

func (c *cc[K, V]) Load(key K) (V, time.Duration, bool) {
	c.mu.RLock()
	it, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, 0, false
	}
	return it.LoadRemain()
}

func (c *cc[K, V]) Store(key K, val V) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.m[key] = item.New(c.e, val)
	return c.e
}

func (c *cc[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

func (c *cc[K, V]) LoadOrStore(key K, val V) (V, time.Duration, bool) {
	if v, r, ok := c.Load(key); ok {
		return v, r, true
	}
	exp := c.Store(key, val)
	return val, exp, false
}

func (c *cc[K, V]) LoadAndDelete(key K) (V, bool) {
	v, _, ok := c.Load(key)
	if ok {
		c.Delete(key)
	}
	return v, ok
}

func (c *cc[K, V]) Clone(ctx context.Context, exp time.Duration) Cache[K, V] {
	if ctx == nil {
		ctx = c.Context
	}
	if exp < time.Microsecond {
		exp = c.e
	}

	n := New[K, V](ctx, exp)
	c.Walk(func(key K, val V, _ time.Duration) bool {
		n.Store(key, val)
		return true
	})
	return n
}

func (c *cc[K, V]) Merge(other Cache[K, V]) {
	if other == nil {
		return
	}
	other.Walk(func(key K, val V, _ time.Duration) bool {
		c.Store(key, val)
		return true
	})
}
