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

// Package echo is the ECHO test protocol: it identifies on a literal
// "ECHO" prefix, strips that 4-byte identifier from the first message,
// and echoes every message's body back, capped at 1022 bytes of payload
// (1024 minus the 2-byte length prefix the connection runtime adds).
package echo

import (
	"bytes"

	"github.com/sabouaram/kaplar/protocol"
)

// Prefix is the literal bytes identifying an ECHO client.
var Prefix = []byte("ECHO")

// MaxEcho is the largest payload this protocol will echo back, chosen so
// the framed response (payload + 2-byte length prefix) never exceeds
// 1024 bytes.
const MaxEcho = 1022

// Protocol implements protocol.Handler for ECHO.
type Protocol struct{}

// New returns a ready-to-register ECHO protocol handler.
func New() *Protocol {
	return &Protocol{}
}

func (p *Protocol) Name() string     { return "echo" }
func (p *Protocol) SendsFirst() bool { return false }

func (p *Protocol) Identify(firstBytes []byte) bool {
	return bytes.HasPrefix(firstBytes, Prefix)
}

func (p *Protocol) Init() error { return nil }
func (p *Protocol) Shutdown()   {}

func (p *Protocol) CreateState(protocol.Conn) any   { return nil }
func (p *Protocol) DestroyState(protocol.Conn, any) {}

func (p *Protocol) OnConnect(protocol.Conn, any) {}
func (p *Protocol) OnClose(protocol.Conn, any)   {}

func (p *Protocol) OnWrite(protocol.Conn, any) protocol.Status {
	return protocol.OK
}

// OnRecvFirstMessage strips the leading "ECHO" identifier (already
// verified by Identify) before echoing whatever body remains.
func (p *Protocol) OnRecvFirstMessage(conn protocol.Conn, state any, body []byte) protocol.Status {
	body = bytes.TrimPrefix(body, Prefix)
	return p.echo(conn, body)
}

// OnRecvMessage echoes every subsequent message verbatim.
func (p *Protocol) OnRecvMessage(conn protocol.Conn, state any, body []byte) protocol.Status {
	return p.echo(conn, body)
}

func (p *Protocol) echo(conn protocol.Conn, body []byte) protocol.Status {
	if len(body) > MaxEcho {
		body = body[:MaxEcho]
	}
	if err := conn.Send(body); err != nil {
		return protocol.Abort
	}
	return protocol.OK
}
