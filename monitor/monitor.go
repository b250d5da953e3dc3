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

// Package monitor runs a named component's health check on a fixed
// interval, tracks rise/fall streaks to smooth flapping, and exposes the
// resulting status and check latency as Prometheus gauges - a named
// health probe for the listeners, the scheduler, and the worker pool, in
// place of the original's informal "is it still alive" log lines.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/kaplar/duration"
	"github.com/sabouaram/kaplar/runner/ticker"
)

var _ prometheus.Collector = (*mon)(nil)

// Status is the smoothed health of a monitored component.
type Status uint8

const (
	StatusOK Status = iota
	StatusWarn
	StatusKO
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusWarn:
		return "warn"
	case StatusKO:
		return "ko"
	}
	return "unknown"
}

// HealthCheck is called on every tick; a non-nil error counts as one
// failed check toward the fall thresholds.
type HealthCheck func(ctx context.Context) error

// Config controls the check cadence and the rise/fall streak lengths
// needed to flip Status, so a single slow response doesn't flap a
// component between OK and KO.
type Config struct {
	Name string

	CheckTimeout  duration.Duration
	IntervalCheck duration.Duration

	FallCountWarn int
	FallCountKO   int
	RiseCountWarn int
	RiseCountKO   int
}

// Monitor periodically runs a HealthCheck and exposes the resulting
// Status, Latency and Uptime (time spent continuously in StatusOK).
type Monitor interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool

	SetHealthCheck(fct HealthCheck)
	GetHealthCheck() HealthCheck

	SetConfig(cfg Config) error

	Status() Status
	Latency() time.Duration
	Uptime() time.Duration
}

type mon struct {
	mu sync.RWMutex

	cfg  Config
	fct  HealthCheck
	tick ticker.Ticker

	status    Status
	latency   time.Duration
	fallCount int
	riseCount int

	okSince time.Time

	gaugeStatus  prometheus.Gauge
	gaugeLatency prometheus.Gauge
}

// New returns a Monitor named cfg.Name with zero-value counters not yet
// started; call SetHealthCheck before Start.
func New(cfg Config) Monitor {
	m := &mon{
		cfg:     cfg,
		status:  StatusOK,
		okSince: time.Now(),
		gaugeStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kaplar",
			Subsystem: "monitor",
			Name:      "status",
			ConstLabels: prometheus.Labels{
				"name": cfg.Name,
			},
			Help: "Health status of the named component (0=ok, 1=warn, 2=ko).",
		}),
		gaugeLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "kaplar",
			Subsystem: "monitor",
			Name:      "latency_seconds",
			ConstLabels: prometheus.Labels{
				"name": cfg.Name,
			},
			Help: "Duration of the most recent health check.",
		}),
	}

	interval := cfg.IntervalCheck.Time()
	m.tick = ticker.New(interval, m.runCheck)
	return m
}

// Describe implements prometheus.Collector so a Monitor can be registered
// directly with a prometheus.Registry.
func (m *mon) Describe(ch chan<- *prometheus.Desc) {
	m.gaugeStatus.Describe(ch)
	m.gaugeLatency.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *mon) Collect(ch chan<- prometheus.Metric) {
	m.gaugeStatus.Collect(ch)
	m.gaugeLatency.Collect(ch)
}

func (m *mon) Start(ctx context.Context) error {
	return m.tick.Start(ctx)
}

func (m *mon) Stop(ctx context.Context) error {
	return m.tick.Stop(ctx)
}

func (m *mon) IsRunning() bool {
	return m.tick.IsRunning()
}

func (m *mon) SetHealthCheck(fct HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fct = fct
}

func (m *mon) GetHealthCheck() HealthCheck {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fct
}

func (m *mon) SetConfig(cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	return nil
}

func (m *mon) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *mon) Latency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latency
}

func (m *mon) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != StatusOK || m.okSince.IsZero() {
		return 0
	}
	return time.Since(m.okSince)
}

func (m *mon) runCheck(ctx context.Context, _ *time.Ticker) error {
	m.mu.RLock()
	fct := m.fct
	timeout := m.cfg.CheckTimeout.Time()
	m.mu.RUnlock()

	if fct == nil {
		return nil
	}

	cctx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fct(cctx)
	elapsed := time.Since(start)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.latency = elapsed
	m.gaugeLatency.Set(elapsed.Seconds())

	if err != nil {
		m.riseCount = 0
		m.fallCount++
		switch {
		case m.cfg.FallCountKO > 0 && m.fallCount >= m.cfg.FallCountKO:
			m.setStatusLocked(StatusKO)
		case m.cfg.FallCountWarn > 0 && m.fallCount >= m.cfg.FallCountWarn:
			m.setStatusLocked(StatusWarn)
		}
		return nil
	}

	m.fallCount = 0
	m.riseCount++
	switch {
	case m.status == StatusOK:
		// already healthy, nothing to rise into
	case m.cfg.RiseCountKO > 0 && m.status == StatusKO && m.riseCount < m.cfg.RiseCountKO:
		// still climbing out of KO
	case m.cfg.RiseCountWarn > 0 && m.riseCount < m.cfg.RiseCountWarn:
		// still climbing out of Warn
	default:
		m.setStatusLocked(StatusOK)
	}
	return nil
}

// setStatusLocked updates status, the status gauge, and the
// continuously-OK timer. Callers must hold m.mu.
func (m *mon) setStatusLocked(s Status) {
	if s == StatusOK && m.status != StatusOK {
		m.okSince = time.Now()
	}
	if s != StatusOK {
		m.okSince = time.Time{}
	}
	m.status = s
	m.gaugeStatus.Set(float64(s))
}
