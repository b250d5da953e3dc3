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

package ticker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sabouaram/kaplar/runner/ticker"
)

func TestNewTickerStartsIdle(t *testing.T) {
	tk := ticker.New(100*time.Millisecond, func(context.Context, *time.Ticker) error { return nil })
	if tk.IsRunning() {
		t.Fatalf("expected new ticker to be idle")
	}
	if tk.Uptime() != 0 {
		t.Fatalf("expected zero uptime before start")
	}
}

func TestNilFuncDoesNotPanic(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tk := ticker.New(5*time.Millisecond, nil)
	if err := tk.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	_ = tk.Stop(ctx)
}

func TestTicksFireRepeatedly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count atomic.Int32
	tk := ticker.New(10*time.Millisecond, func(context.Context, *time.Ticker) error {
		count.Add(1)
		return nil
	})

	if err := tk.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !tk.IsRunning() {
		t.Fatalf("expected running immediately after Start")
	}

	time.Sleep(100 * time.Millisecond)
	if count.Load() < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", count.Load())
	}

	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if tk.IsRunning() {
		t.Fatalf("expected not running after Stop")
	}
	if tk.Uptime() != 0 {
		t.Fatalf("expected zero uptime after Stop")
	}
}

func TestStopPreventsFurtherTicks(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count atomic.Int32
	tk := ticker.New(10*time.Millisecond, func(context.Context, *time.Ticker) error {
		count.Add(1)
		return nil
	})
	_ = tk.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	_ = tk.Stop(ctx)

	atStop := count.Load()
	time.Sleep(30 * time.Millisecond)
	if count.Load() != atStop {
		t.Fatalf("expected no further ticks after Stop: %d -> %d", atStop, count.Load())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	ctx := context.Background()
	tk := ticker.New(10*time.Millisecond, func(context.Context, *time.Ticker) error { return nil })
	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("Stop on unstarted ticker: %v", err)
	}
	_ = tk.Start(ctx)
	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := tk.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestRestartResetsUptimeAndKeepsTicking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count atomic.Int32
	tk := ticker.New(10*time.Millisecond, func(context.Context, *time.Ticker) error {
		count.Add(1)
		return nil
	})
	_ = tk.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	firstCount := count.Load()

	if err := tk.Restart(ctx); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if !tk.IsRunning() {
		t.Fatalf("expected running after Restart")
	}
	if tk.Uptime() >= 30*time.Millisecond {
		t.Fatalf("expected Restart to reset uptime, got %s", tk.Uptime())
	}

	time.Sleep(60 * time.Millisecond)
	if count.Load() <= firstCount {
		t.Fatalf("expected ticking to continue after Restart")
	}
	_ = tk.Stop(ctx)
}

func TestStartAgainReplacesPreviousInstance(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var count atomic.Int32
	tk := ticker.New(20*time.Millisecond, func(context.Context, *time.Ticker) error {
		count.Add(1)
		return nil
	})
	_ = tk.Start(ctx)
	time.Sleep(30 * time.Millisecond)

	if err := tk.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !tk.IsRunning() {
		t.Fatalf("expected running after restarting via Start")
	}
	_ = tk.Stop(ctx)
}
