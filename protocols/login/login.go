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

// Package login implements the login/character-list handshake: a single
// 149-byte first message carrying an RSA-encoded symmetric key plus
// account credentials, answered with an XTEA-encrypted, checksummed,
// length-framed response and then an immediate close - exactly the
// original protocol_login.c's one-shot handshake (it never expects a
// second message; on_write always returns PROTO_CLOSE).
package login

import (
	"hash/adler32"
	"time"

	"github.com/sabouaram/kaplar/cache"
	"github.com/sabouaram/kaplar/errors"
	"github.com/sabouaram/kaplar/message"
	"github.com/sabouaram/kaplar/protocol"
)

func init() {
	errors.Register(errors.MinPkgProtoLogin+1, "malformed first message")
	errors.Register(errors.MinPkgProtoLogin+2, "rsa decode failed")
	errors.Register(errors.MinPkgProtoLogin+3, "replayed login handshake")
}

// ErrMalformedFirstMessage is the abort cause for a first message that is
// not exactly firstMessageLen bytes, or whose checksum/protocol id does
// not match.
var ErrMalformedFirstMessage = errors.MinPkgProtoLogin + 1

// ErrRSADecodeFailed is the abort cause when the 128-byte encrypted block
// fails to decode.
var ErrRSADecodeFailed = errors.MinPkgProtoLogin + 2

// ErrReplayedHandshake is the abort cause when the same account name
// retries the handshake within replayWindow, the one window in which a
// captured first message could be blindly replayed at the still-open TCP
// listener.
var ErrReplayedHandshake = errors.MinPkgProtoLogin + 3

// replayWindow is how long an account name is held in the nonce cache
// after a successful handshake before a repeat attempt is allowed again.
const replayWindow = 2 * time.Second

const (
	firstMessageLen  = 149
	rsaBlockOffset   = 21 // 4 (checksum) + 1 (proto id) + 2 (os) + 2 (version) + 12 (asset checksum)
	rsaBlockLen      = 128
	xteaKeyLen       = 16 // 4 x u32
)

// Account is the credential pair decoded from the RSA block.
type Account struct {
	Name     string
	Password string
}

// Character is one entry of the character list response.
type Character struct {
	Name       string
	World      string
	Address    uint32
	Port       uint16
}

// AccountLookup resolves a decoded Account into the character list (and
// motd) to send back. It stands in for the original's commented TODO -
// "send a request to the database thread and wait for the data... this
// will avoid stalling the network thread" - as an injected extension
// point rather than a concrete database client, since database
// integration is explicitly out of scope.
type AccountLookup interface {
	Lookup(acc Account) (motd string, chars []Character, err error)
}

// StaticLookup is an AccountLookup that always returns the same motd and
// character list, useful for tests and as the zero-config default.
type StaticLookup struct {
	Motd       string
	Characters []Character
}

// Lookup implements AccountLookup.
func (s StaticLookup) Lookup(Account) (string, []Character, error) {
	return s.Motd, s.Characters, nil
}

// Protocol implements protocol.Handler for the login handshake.
type Protocol struct {
	Decoder KeyDecoder
	Lookup  AccountLookup

	seen cache.Cache[string, struct{}]
}

// New returns a login protocol handler. decoder performs the RSA step;
// lookup resolves accounts to character lists. A per-account nonce cache
// rejects a second handshake attempt for the same account within
// replayWindow.
func New(decoder KeyDecoder, lookup AccountLookup) *Protocol {
	return &Protocol{
		Decoder: decoder,
		Lookup:  lookup,
		seen:    cache.New[string, struct{}](nil, replayWindow),
	}
}

func (p *Protocol) Name() string     { return "login" }
func (p *Protocol) SendsFirst() bool { return false }

// Identify matches the original: an adler32 checksum over bytes[4:] must
// equal the little-endian u32 at bytes[0:4], and byte 4 must be the
// protocol id 0x01. Messages without a valid checksum use the old,
// unsupported login protocol and are rejected.
func (p *Protocol) Identify(firstBytes []byte) bool {
	if len(firstBytes) < 5 {
		return false
	}
	want := uint32(firstBytes[0]) | uint32(firstBytes[1])<<8 |
		uint32(firstBytes[2])<<16 | uint32(firstBytes[3])<<24
	got := adler32.Checksum(firstBytes[4:])
	return got == want && firstBytes[4] == 0x01
}

func (p *Protocol) Init() error { return nil }
func (p *Protocol) Shutdown()   { p.seen.Close() }

func (p *Protocol) CreateState(protocol.Conn) any   { return nil }
func (p *Protocol) DestroyState(protocol.Conn, any) {}

func (p *Protocol) OnConnect(protocol.Conn, any) {}
func (p *Protocol) OnClose(protocol.Conn, any)   {}

// OnWrite always requests a close: the handshake is a single
// request/response exchange, matching the original's on_write always
// returning PROTO_CLOSE.
func (p *Protocol) OnWrite(protocol.Conn, any) protocol.Status {
	return protocol.Close
}

// OnRecvMessage is never meaningfully reached: the handshake closes after
// its one response, but a client that keeps writing is tolerated rather
// than treated as a protocol violation.
func (p *Protocol) OnRecvMessage(protocol.Conn, any, []byte) protocol.Status {
	return protocol.OK
}

// OnRecvFirstMessage decodes the handshake and replies with the
// motd/character-list response, then requests a close.
func (p *Protocol) OnRecvFirstMessage(conn protocol.Conn, state any, body []byte) protocol.Status {
	if len(body) != firstMessageLen {
		return protocol.Abort
	}

	block := append([]byte(nil), body[rsaBlockOffset:rsaBlockOffset+rsaBlockLen]...)
	plainLen, err := p.Decoder.Decode(block)
	if err != nil {
		return protocol.Abort
	}
	plain := block[:plainLen]
	if len(plain) < xteaKeyLen {
		return protocol.Abort
	}

	var m message.Message
	m.SetBody(plain)

	var key [4]uint32
	for i := range key {
		v, gerr := m.GetU32()
		if gerr != nil {
			return protocol.Abort
		}
		key[i] = v
	}
	accName, gerr := m.GetString()
	if gerr != nil {
		return protocol.Abort
	}
	accPass, gerr := m.GetString()
	if gerr != nil {
		return protocol.Abort
	}

	if _, _, loaded := p.seen.LoadOrStore(accName, struct{}{}); loaded {
		return protocol.Abort
	}

	motd, chars, lerr := p.Lookup.Lookup(Account{Name: accName, Password: accPass})
	if lerr != nil {
		return protocol.Abort
	}

	resp := buildResponse(motd, chars)
	encoded, eerr := encodeResponse(key, resp)
	if eerr != nil {
		return protocol.Abort
	}

	if err := conn.Send(encoded); err != nil {
		return protocol.Abort
	}
	return protocol.Close
}

// buildResponse renders the plaintext motd (0x14) + character list
// (0x64) opcodes the legacy client expects.
func buildResponse(motd string, chars []Character) []byte {
	var m message.Message

	m.AddU8(0x14)
	m.AddString(motd)

	m.AddU8(0x64)
	m.AddU8(uint8(len(chars)))
	for _, c := range chars {
		m.AddString(c.Name)
		m.AddString(c.World)
		m.AddU32(c.Address)
		m.AddU16(c.Port)
	}

	return m.Bytes()
}
