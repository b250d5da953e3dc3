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

package echo_test

import (
	"testing"

	"github.com/sabouaram/kaplar/protocol"
	"github.com/sabouaram/kaplar/protocols/echo"
)

type fakeConn struct {
	sent [][]byte
}

func (f *fakeConn) Send(payload []byte) error {
	f.sent = append(f.sent, append([]byte(nil), payload...))
	return nil
}
func (f *fakeConn) Close(protocol.Status) {}
func (f *fakeConn) RemoteAddr() string    { return "test" }

func TestIdentifyRequiresPrefix(t *testing.T) {
	p := echo.New()
	if !p.Identify([]byte("ECHOhi")) {
		t.Fatalf("expected ECHO-prefixed bytes to identify")
	}
	if p.Identify([]byte("nope")) {
		t.Fatalf("expected non-ECHO bytes to reject")
	}
}

func TestFirstMessageStripsIdentifier(t *testing.T) {
	p := echo.New()
	c := &fakeConn{}
	status := p.OnRecvFirstMessage(c, nil, []byte("ECHOhi"))
	if status != protocol.OK {
		t.Fatalf("expected OK status, got %v", status)
	}
	if len(c.sent) != 1 || string(c.sent[0]) != "hi" {
		t.Fatalf("expected echo of %q, got %v", "hi", c.sent)
	}
}

func TestSubsequentMessageEchoedVerbatim(t *testing.T) {
	p := echo.New()
	c := &fakeConn{}
	p.OnRecvMessage(c, nil, []byte("second"))
	if len(c.sent) != 1 || string(c.sent[0]) != "second" {
		t.Fatalf("expected echo of %q, got %v", "second", c.sent)
	}
}

func TestEchoCapsAt1022Bytes(t *testing.T) {
	p := echo.New()
	c := &fakeConn{}
	big := make([]byte, 2000)
	for i := range big {
		big[i] = 'x'
	}
	p.OnRecvMessage(c, nil, big)
	if len(c.sent[0]) != echo.MaxEcho {
		t.Fatalf("expected echo capped at %d bytes, got %d", echo.MaxEcho, len(c.sent[0]))
	}
}

func TestSendsFirstIsFalse(t *testing.T) {
	if echo.New().SendsFirst() {
		t.Fatalf("echo must not be a sends-first protocol")
	}
}
