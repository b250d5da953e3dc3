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

package context_test

import (
	stdctx "context"
	"testing"

	"github.com/sabouaram/kaplar/context"
)

func TestLoadStoreDelete(t *testing.T) {
	cfg := context.New[string](nil)

	if _, ok := cfg.Load("missing"); ok {
		t.Fatalf("expected missing key to report not found")
	}

	cfg.Store("a", 1)
	v, ok := cfg.Load("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("expected stored value 1, got %v ok=%v", v, ok)
	}

	cfg.Delete("a")
	if _, ok := cfg.Load("a"); ok {
		t.Fatalf("expected key to be gone after Delete")
	}
}

func TestStoreNilDeletes(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)
	cfg.Store("a", nil)

	if _, ok := cfg.Load("a"); ok {
		t.Fatalf("expected storing nil to delete the key")
	}
}

func TestLoadOrStoreAndLoadAndDelete(t *testing.T) {
	cfg := context.New[string](nil)

	actual, loaded := cfg.LoadOrStore("a", 1)
	if loaded || actual.(int) != 1 {
		t.Fatalf("expected first LoadOrStore to store, got %v loaded=%v", actual, loaded)
	}

	actual, loaded = cfg.LoadOrStore("a", 2)
	if !loaded || actual.(int) != 1 {
		t.Fatalf("expected second LoadOrStore to return existing value, got %v loaded=%v", actual, loaded)
	}

	v, loaded := cfg.LoadAndDelete("a")
	if !loaded || v.(int) != 1 {
		t.Fatalf("expected LoadAndDelete to return existing value")
	}
	if _, ok := cfg.Load("a"); ok {
		t.Fatalf("expected key removed after LoadAndDelete")
	}
}

func TestWalkVisitsEveryEntry(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)
	cfg.Store("b", 2)
	cfg.Store("c", 3)

	seen := map[string]int{}
	cfg.Walk(func(key string, val any) bool {
		seen[key] = val.(int)
		return true
	})

	if len(seen) != 3 || seen["a"] != 1 || seen["b"] != 2 || seen["c"] != 3 {
		t.Fatalf("expected all three entries visited, got %v", seen)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)
	cfg.Store("b", 2)

	count := 0
	cfg.Walk(func(key string, val any) bool {
		count++
		return false
	})

	if count != 1 {
		t.Fatalf("expected walk to stop after first entry, visited %d", count)
	}
}

func TestWalkLimitOnlyVisitsGivenKeys(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)
	cfg.Store("b", 2)
	cfg.Store("c", 3)

	seen := map[string]bool{}
	cfg.WalkLimit(func(key string, val any) bool {
		seen[key] = true
		return true
	}, "a", "c", "missing")

	if len(seen) != 2 || !seen["a"] || !seen["c"] {
		t.Fatalf("expected only a and c visited, got %v", seen)
	}
}

func TestCleanRemovesEverything(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)
	cfg.Store("b", 2)
	cfg.Clean()

	n := 0
	cfg.Walk(func(key string, val any) bool {
		n++
		return true
	})
	if n != 0 {
		t.Fatalf("expected empty registry after Clean, found %d entries", n)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := context.New[string](nil)
	cfg.Store("a", 1)

	clone := cfg.Clone(nil)
	clone.Store("b", 2)

	if _, ok := cfg.Load("b"); ok {
		t.Fatalf("expected original registry unaffected by clone mutation")
	}
	if v, ok := clone.Load("a"); !ok || v.(int) != 1 {
		t.Fatalf("expected clone to carry original entries")
	}
}

func TestMergeCopiesEntriesAndOverwrites(t *testing.T) {
	a := context.New[string](nil)
	a.Store("x", 1)
	a.Store("y", 1)

	b := context.New[string](nil)
	b.Store("y", 2)
	b.Store("z", 2)

	if !a.Merge(b) {
		t.Fatalf("expected Merge of non-nil registry to succeed")
	}

	if v, _ := a.Load("x"); v.(int) != 1 {
		t.Fatalf("expected x untouched by merge")
	}
	if v, _ := a.Load("y"); v.(int) != 2 {
		t.Fatalf("expected y overwritten by merge")
	}
	if v, _ := a.Load("z"); v.(int) != 2 {
		t.Fatalf("expected z added by merge")
	}
}

func TestMergeNilReturnsFalse(t *testing.T) {
	a := context.New[string](nil)
	if a.Merge(nil) {
		t.Fatalf("expected Merge(nil) to return false")
	}
}

func TestNewDefaultsToBackground(t *testing.T) {
	cfg := context.New[string](nil)
	if cfg.Err() != nil {
		t.Fatalf("expected fresh background-bound registry to have no context error")
	}
}

func TestCancellationPropagates(t *testing.T) {
	ctx, cancel := stdctx.WithCancel(stdctx.Background())
	cfg := context.New[int](ctx)
	cancel()

	select {
	case <-cfg.Done():
	default:
		t.Fatalf("expected Done channel to be closed after parent cancellation")
	}
	if cfg.Err() == nil {
		t.Fatalf("expected context error after cancellation")
	}
}
