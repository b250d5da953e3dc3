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

package connection

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/sabouaram/kaplar/scheduler"
	"github.com/sabouaram/kaplar/service"
	"github.com/sabouaram/kaplar/slab"
)

// Manager is the process-wide table of live connections, the "connection
// manager" global singleton the spec calls for - modeled as an explicit
// value threaded into the server driver rather than a package-level
// variable, to keep it easy to construct fresh per test.
type Manager struct {
	mu    sync.RWMutex
	conns map[uint64]*Conn
	next  uint64
	sched *scheduler.Scheduler
	alloc *slab.ByteAllocator
}

// NewManager creates an empty connection table driven by sched for
// read/write deadlines. Every connection it accepts shares the same
// size-class byte allocator for its read buffer, in place of each
// connection paging in its own make([]byte, ...) on every readable event.
func NewManager(sched *scheduler.Scheduler) *Manager {
	return &Manager{
		conns: make(map[uint64]*Conn),
		sched: sched,
		alloc: slab.NewByteAllocator(),
	}
}

// Accept wraps nc in a new Conn bound to svc, registers it, and starts
// its state machine.
func (m *Manager) Accept(nc net.Conn, svc *service.Service) *Conn {
	id := atomic.AddUint64(&m.next, 1)
	c := newConn(id, nc, m, m.sched, svc)

	m.mu.Lock()
	m.conns[id] = c
	m.mu.Unlock()

	c.Start()
	return c
}

func (m *Manager) remove(id uint64) {
	m.mu.Lock()
	delete(m.conns, id)
	m.mu.Unlock()
}

// Len returns the number of live connections.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// weakRef is a non-owning reference to a connection: a timer callback
// holds one of these, never a *Conn directly, breaking the reference
// cycle the connection (owner of the scheduler handle) would otherwise
// form with its own deadline callback (owner of the connection). Upgrade
// looks the id back up in the manager's live table; if the connection has
// already been destroyed and removed, the upgrade fails and the callback
// is a no-op, exactly as the spec's "weak reference... upgrade-or-noop"
// design note requires.
type weakRef struct {
	mgr *Manager
	id  uint64
}

func (m *Manager) weakRef(id uint64) weakRef {
	return weakRef{mgr: m, id: id}
}

func (w weakRef) upgrade() (*Conn, bool) {
	w.mgr.mu.RLock()
	defer w.mgr.mu.RUnlock()
	c, ok := w.mgr.conns[w.id]
	return c, ok
}

// ShutdownAll aborts every live connection, used during server teardown.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	all := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		all = append(all, c)
	}
	m.mu.RUnlock()

	for _, c := range all {
		c.mu.Lock()
		c.abortLocked()
		c.mu.Unlock()
	}
}
