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

package monitor_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sabouaram/kaplar/duration"
	"github.com/sabouaram/kaplar/monitor"
)

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func newTestMonitor(name string) monitor.Monitor {
	return monitor.New(monitor.Config{
		Name:          name,
		CheckTimeout:  duration.Milliseconds(50),
		IntervalCheck: duration.Milliseconds(5),
		FallCountWarn: 2,
		FallCountKO:   3,
		RiseCountWarn: 1,
		RiseCountKO:   1,
	})
}

func TestStartsOKAndRunning(t *testing.T) {
	m := newTestMonitor("svc-a")
	m.SetHealthCheck(func(ctx context.Context) error { return nil })

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	waitUntil(t, time.Second, m.IsRunning)
	if m.Status() != monitor.StatusOK {
		t.Fatalf("expected StatusOK, got %v", m.Status())
	}
}

func TestFallsToKOAfterThreshold(t *testing.T) {
	m := newTestMonitor("svc-b")
	m.SetHealthCheck(func(ctx context.Context) error { return errors.New("boom") })

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	waitUntil(t, time.Second, func() bool { return m.Status() == monitor.StatusKO })
}

func TestRecoversToOKAfterRise(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	m := newTestMonitor("svc-c")
	m.SetHealthCheck(func(ctx context.Context) error {
		if fail.Load() {
			return errors.New("boom")
		}
		return nil
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	waitUntil(t, time.Second, func() bool { return m.Status() == monitor.StatusKO })
	fail.Store(false)
	waitUntil(t, time.Second, func() bool { return m.Status() == monitor.StatusOK })
}

func TestLatencyTracksHealthCheckDuration(t *testing.T) {
	m := newTestMonitor("svc-d")
	m.SetHealthCheck(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer m.Stop(context.Background())

	waitUntil(t, time.Second, func() bool { return m.Latency() >= 10*time.Millisecond })
}

func TestFreshMonitorStartsOKWithNonNegativeUptime(t *testing.T) {
	m := newTestMonitor("svc-e")
	if got := m.Status(); got != monitor.StatusOK {
		t.Fatalf("expected fresh monitor to start at StatusOK, got %v", got)
	}
	if m.Uptime() < 0 {
		t.Fatalf("expected non-negative uptime")
	}
}

func TestSetAndGetHealthCheck(t *testing.T) {
	m := newTestMonitor("svc-f")
	if m.GetHealthCheck() != nil {
		t.Fatalf("expected nil health check before SetHealthCheck")
	}

	called := atomic.Bool{}
	m.SetHealthCheck(func(ctx context.Context) error {
		called.Store(true)
		return nil
	})

	fct := m.GetHealthCheck()
	if fct == nil {
		t.Fatalf("expected a non-nil health check after SetHealthCheck")
	}
	if err := fct(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called.Load() {
		t.Fatalf("expected the configured health check to run")
	}
}

func TestStopStopsRunning(t *testing.T) {
	m := newTestMonitor("svc-g")
	m.SetHealthCheck(func(ctx context.Context) error { return nil })

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitUntil(t, time.Second, m.IsRunning)

	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.IsRunning() {
		t.Fatalf("expected monitor to stop running")
	}
}
