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

// Package connection implements the per-socket state machine: framing a
// byte stream into length-prefixed messages, resolving the owning
// protocol on the first message, dispatching to it, and driving output
// back out with backpressure and deadline-based idle close. It is the
// direct translation of the original connection.h/cpp state machine, with
// epoll readiness replaced by blocking reads on the accepted net.Conn
// (bytes available to read, or an error) since Go's netpoller already
// supplies the readiness multiplexing the original hand-rolled.
package connection

import (
	"net"
	"sync"
	"time"

	"github.com/sabouaram/kaplar/errors"
	"github.com/sabouaram/kaplar/message"
	"github.com/sabouaram/kaplar/protocol"
	"github.com/sabouaram/kaplar/scheduler"
	"github.com/sabouaram/kaplar/service"
)

func init() {
	errors.Register(errors.MinPkgConnection+1, "output queue full")
	errors.Register(errors.MinPkgConnection+2, "no protocol matched first bytes")
	errors.Register(errors.MinPkgConnection+3, "frame exceeds maximum payload")
}

// ErrOutputFull is returned by Send when the bounded output queue has no
// room; the caller (the connection itself) treats this as a close cause.
var ErrOutputFull = errors.MinPkgConnection + 1

// ErrNoProtocolMatch is the abort cause when no bound protocol's Identify
// accepts the first frame.
var ErrNoProtocolMatch = errors.MinPkgConnection + 2

// ErrFrameTooLarge guards the length prefix against a hostile or corrupt
// peer demanding an oversized body.
var ErrFrameTooLarge = errors.MinPkgConnection + 3

// DefaultDeadline is the read/write idle timeout armed after every
// successful I/O operation, matching the spec's "typically 30s".
const DefaultDeadline = 30 * time.Second

// MaxOutputQueue bounds how many framed messages may be queued for write
// before Send treats the connection as overwhelmed and closes it.
const MaxOutputQueue = 64

// Conn is one accepted socket wrapped in the framing/dispatch state
// machine. Exported methods are safe for concurrent use; internally a
// single mutex serializes state transitions exactly as the spec requires
// (reads and writes may progress concurrently but mutate disjoint state,
// while on_recv_*/on_write are never observed concurrently for the same
// connection since both run only from OnReadable/OnWritable,
// which take this lock for their whole critical section).
type Conn struct {
	mu sync.Mutex

	id      uint64
	nc      net.Conn
	mgr     *Manager
	sched   *scheduler.Scheduler
	svc     *service.Service
	proto   protocol.Handler
	pstate  any

	flags      flags
	input      message.Message
	frameState message.FrameState
	firstSeen  bool

	output  [][]byte
	writing bool

	readDeadline  scheduler.Handle
	writeDeadline scheduler.Handle
}

func newConn(id uint64, nc net.Conn, mgr *Manager, sched *scheduler.Scheduler, svc *service.Service) *Conn {
	c := &Conn{
		id:    id,
		nc:    nc,
		mgr:   mgr,
		sched: sched,
		svc:   svc,
		flags: newFlags(),
	}
	c.flags.set(flagNew)
	return c
}

// Start transitions the connection into READY/READING_LENGTH and arms the
// initial read deadline. Called once the connection has been registered
// with the manager.
func (c *Conn) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags.clear(flagNew)
	c.flags.set(flagReady)
	c.flags.set(flagReadingLength)
	c.armReadDeadline()
}

// RemoteAddr implements protocol.Conn.
func (c *Conn) RemoteAddr() string {
	if c.nc == nil {
		return ""
	}
	return c.nc.RemoteAddr().String()
}

// Send implements protocol.Conn: enqueues a payload (without its length
// prefix; sendLocked applies framing via message.Frame) and kicks the writer if none
// is currently in flight.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(payload)
}

func (c *Conn) sendLocked(payload []byte) error {
	if c.flags.has(flagClosed) || c.flags.has(flagShutdown) {
		return nil
	}
	if len(c.output) >= MaxOutputQueue {
		c.abortLocked()
		return ErrOutputFull.Error()
	}
	c.output = append(c.output, message.Frame(payload))
	if !c.writing {
		c.writing = true
		c.flushLocked()
	}
	return nil
}

// Close implements protocol.Conn.
func (c *Conn) Close(status protocol.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status == protocol.Abort {
		c.abortLocked()
	} else {
		c.gracefulCloseLocked()
	}
}

func (c *Conn) gracefulCloseLocked() {
	if c.flags.has(flagClosed) {
		return
	}
	c.flags.set(flagShutdown)
	if len(c.output) == 0 && !c.writing {
		c.destroyLocked()
	}
}

func (c *Conn) abortLocked() {
	if c.flags.has(flagClosed) {
		return
	}
	c.output = nil
	c.flags.set(flagShutdown)
	c.destroyLocked()
}

func (c *Conn) destroyLocked() {
	if c.flags.has(flagClosed) {
		return
	}
	c.flags.set(flagClosed)
	c.cancelDeadlinesLocked()
	if c.proto != nil {
		c.proto.OnClose(c, c.pstate)
		c.proto.DestroyState(c, c.pstate)
	}
	_ = c.nc.Close()
	c.mgr.remove(c.id)
}

// OnReadable is invoked by the server driver when the socket has bytes
// ready. It reads everything currently available, feeds it through the
// framer, and dispatches every completed frame in order.
func (c *Conn) OnReadable() {
	buf, handle, aerr := c.mgr.alloc.Alloc(4096)
	if aerr != nil {
		buf = make([]byte, 4096)
	} else {
		defer func() { _ = c.mgr.alloc.Free(handle) }()
	}
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.feedLocked(buf[:n])
			stillAlive := !c.flags.has(flagClosed)
			if stillAlive {
				c.armReadDeadline()
			}
			c.mu.Unlock()
			if !stillAlive {
				return
			}
		}
		if err != nil {
			if isTemporary(err) {
				return
			}
			c.mu.Lock()
			c.abortLocked()
			c.mu.Unlock()
			return
		}
		if n == 0 {
			return
		}
	}
}

func isTemporary(err error) bool {
	type temporary interface{ Temporary() bool }
	if t, ok := err.(temporary); ok {
		return t.Temporary()
	}
	return false
}

// feedLocked drives the READING_LENGTH / body state machine over
// incoming bytes, which may split the 2-byte length prefix or the body
// across arbitrary chunk boundaries.
func (c *Conn) feedLocked(p []byte) {
	for len(p) > 0 {
		if c.flags.has(flagReadingLength) || c.flags.has(flagPartialLength) {
			consumed, complete := c.frameState.FeedLength(p)
			p = p[consumed:]
			if !complete {
				c.flags.clear(flagReadingLength)
				c.flags.set(flagPartialLength)
				return
			}
			c.flags.clear(flagReadingLength)
			c.flags.clear(flagPartialLength)
			if c.frameState.BodyLength() > message.MaxPayload {
				c.abortLocked()
				return
			}
			c.input.Reset()
			if c.frameState.BodyLength() == 0 {
				c.dispatchLocked(nil)
				c.frameState.Reset()
				c.flags.set(flagReadingLength)
				continue
			}
			continue
		}

		want := c.frameState.BodyLength() - c.input.Len()
		take := want
		if take > len(p) {
			take = len(p)
		}
		if err := c.input.AddBytes(p[:take]); err != nil {
			c.abortLocked()
			return
		}
		p = p[take:]
		if c.input.Len() == c.frameState.BodyLength() {
			body := append([]byte(nil), c.input.Bytes()...)
			c.dispatchLocked(body)
			c.frameState.Reset()
			c.flags.set(flagReadingLength)
		}
	}
}

// dispatchLocked resolves the protocol (on the very first frame) and
// invokes the appropriate callback, acting on the returned status.
func (c *Conn) dispatchLocked(body []byte) {
	if c.proto == nil {
		p := c.svc.SelectProtocol(body)
		if p == nil {
			c.abortLocked()
			return
		}
		c.proto = p
		c.pstate = p.CreateState(c)
		p.OnConnect(c, c.pstate)
	}

	var status protocol.Status
	if !c.firstSeen {
		c.firstSeen = true
		c.flags.set(flagFirstMsg)
		status = c.proto.OnRecvFirstMessage(c, c.pstate, body)
	} else {
		status = c.proto.OnRecvMessage(c, c.pstate, body)
	}

	switch status {
	case protocol.OK:
		// continue; next read resumes at READING_LENGTH (set by caller).
	case protocol.Close:
		c.gracefulCloseLocked()
	case protocol.Abort:
		c.abortLocked()
	}
}

// OnWritable is invoked by the server driver when the socket is ready for
// more output.
func (c *Conn) OnWritable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushLocked()
}

func (c *Conn) flushLocked() {
	if c.flags.has(flagClosed) {
		return
	}
	for len(c.output) > 0 {
		head := c.output[0]
		n, err := c.nc.Write(head)
		if err != nil {
			if isTemporary(err) {
				c.output[0] = head
				return
			}
			c.abortLocked()
			return
		}
		if n < len(head) {
			c.output[0] = head[n:]
			return
		}
		c.output = c.output[1:]
	}
	c.writing = false
	c.armWriteDeadline()

	if len(c.output) == 0 {
		status := protocol.OK
		if c.proto != nil {
			status = c.proto.OnWrite(c, c.pstate)
		}
		switch status {
		case protocol.Close:
			c.gracefulCloseLocked()
		case protocol.Abort:
			c.abortLocked()
		}
		if c.flags.has(flagShutdown) && len(c.output) == 0 {
			c.destroyLocked()
		}
	}
}

// armReadDeadline cancels any pending read timeout and arms a fresh one,
// closing the connection abortively on expiry.
func (c *Conn) armReadDeadline() {
	if c.readDeadline != 0 {
		c.sched.Cancel(c.readDeadline)
	}
	weak := c.mgr.weakRef(c.id)
	h, _ := c.sched.Add(DefaultDeadline, func() {
		if conn, ok := weak.upgrade(); ok {
			conn.mu.Lock()
			conn.abortLocked()
			conn.mu.Unlock()
		}
	})
	c.readDeadline = h
}

func (c *Conn) armWriteDeadline() {
	if c.writeDeadline != 0 {
		c.sched.Cancel(c.writeDeadline)
	}
	weak := c.mgr.weakRef(c.id)
	h, _ := c.sched.Add(DefaultDeadline, func() {
		if conn, ok := weak.upgrade(); ok {
			conn.mu.Lock()
			conn.abortLocked()
			conn.mu.Unlock()
		}
	})
	c.writeDeadline = h
}

func (c *Conn) cancelDeadlinesLocked() {
	if c.readDeadline != 0 {
		c.sched.Cancel(c.readDeadline)
		c.readDeadline = 0
	}
	if c.writeDeadline != 0 {
		c.sched.Cancel(c.writeDeadline)
		c.writeDeadline = 0
	}
}

// IsClosed reports whether the connection has been fully torn down.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags.has(flagClosed)
}
