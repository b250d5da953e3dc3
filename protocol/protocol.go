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

// Package protocol defines the handler contract the connection runtime
// invokes: a capability set (not a class hierarchy) realized as a plain
// Go interface, exactly as the original's function-pointer vtable meant
// to be understood.
package protocol

// Status is the three-valued outcome of a protocol callback.
type Status int

const (
	// OK continues the connection: reset to reading the next frame.
	OK Status = iota
	// Close requests a graceful close: stop reads, drain outbound, destroy.
	Close
	// Abort requests an abortive close: discard outbound, destroy now.
	Abort
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Close:
		return "CLOSE"
	case Abort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// Conn is the subset of the connection runtime a protocol handler is
// allowed to touch, kept narrow so protocol code cannot reach into framing
// internals.
type Conn interface {
	// Send enqueues a framed payload to the connection's output queue.
	Send(payload []byte) error
	// Close requests the connection runtime transition to Close or Abort.
	Close(status Status)
	// RemoteAddr returns the peer address, for logging.
	RemoteAddr() string
}

// Handler is the protocol contract consumed by the connection runtime.
// Concrete protocols (echo, login) implement it; protocol state is
// whatever State() returns per-connection, tagged per protocol rather
// than reached through inheritance.
type Handler interface {
	// Name identifies the protocol for logs and the service registry.
	Name() string

	// SendsFirst reports whether this protocol writes before it ever
	// reads (incompatible with sharing a port with another protocol).
	SendsFirst() bool

	// Identify reports whether the given first bytes belong to this
	// protocol. Only called when the owning service hosts more than one
	// protocol.
	Identify(firstBytes []byte) bool

	// Init is called once when the protocol is registered with a service.
	Init() error
	// Shutdown is called once when the server is tearing down.
	Shutdown()

	// CreateState allocates the protocol-specific state for a new
	// connection; may return nil if the protocol is stateless.
	CreateState(conn Conn) any
	// DestroyState releases protocol-specific state.
	DestroyState(conn Conn, state any)

	// OnConnect fires once a connection has been fully framed and its
	// protocol resolved.
	OnConnect(conn Conn, state any)
	// OnClose fires once, at connection teardown.
	OnClose(conn Conn, state any)
	// OnWrite fires once the output queue has fully drained.
	OnWrite(conn Conn, state any) Status

	// OnRecvFirstMessage handles the first framed payload after protocol
	// selection (identification bytes already stripped by the caller
	// where applicable).
	OnRecvFirstMessage(conn Conn, state any, body []byte) Status
	// OnRecvMessage handles every subsequent framed payload.
	OnRecvMessage(conn Conn, state any, body []byte) Status
}
