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

package login_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/binary"
	"hash/adler32"
	"testing"

	"github.com/sabouaram/kaplar/message"
	"github.com/sabouaram/kaplar/protocol"
	"github.com/sabouaram/kaplar/protocols/login"
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

func buildFirstMessage(t *testing.T, pub *rsa.PublicKey, key [4]uint32, accName, accPass string) []byte {
	t.Helper()

	var plain message.Message
	plain.AddU32(key[0])
	plain.AddU32(key[1])
	plain.AddU32(key[2])
	plain.AddU32(key[3])
	plain.AddString(accName)
	plain.AddString(accPass)

	block := make([]byte, 117)
	copy(block, plain.Bytes())

	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, block)
	if err != nil {
		t.Fatalf("rsa encrypt: %v", err)
	}
	if len(encrypted) != 128 {
		t.Fatalf("expected a 128-byte rsa block, got %d", len(encrypted))
	}

	body := make([]byte, 149)
	body[4] = 0x01 // protocol id
	copy(body[21:], encrypted)

	checksum := adler32.Checksum(body[4:])
	binary.LittleEndian.PutUint32(body, checksum)

	return body
}

func TestIdentifyChecksumAndProtocolID(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{Motd: "hi"})

	body := buildFirstMessage(t, &priv.PublicKey, [4]uint32{1, 2, 3, 4}, "acc", "pass")
	if !p.Identify(body) {
		t.Fatalf("expected a well-formed first message to identify")
	}

	corrupt := append([]byte(nil), body...)
	corrupt[4] = 0x02
	if p.Identify(corrupt) {
		t.Fatalf("expected a bad protocol id to be rejected")
	}

	corrupt2 := append([]byte(nil), body...)
	corrupt2[10] ^= 0xFF
	if p.Identify(corrupt2) {
		t.Fatalf("expected a corrupted checksum to be rejected")
	}
}

func TestOnRecvFirstMessageDecodesAndResponds(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	lookup := login.StaticLookup{
		Motd: "1\nhello",
		Characters: []login.Character{
			{Name: "Harambe", World: "Isara", Address: 16777343, Port: 7171},
		},
	}
	p := login.New(login.NewKeyDecoder(priv), lookup)

	body := buildFirstMessage(t, &priv.PublicKey, [4]uint32{0xAABBCCDD, 1, 2, 3}, "myaccount", "mypassword")

	c := &fakeConn{}
	status := p.OnRecvFirstMessage(c, nil, body)
	if status != protocol.Close {
		t.Fatalf("expected Close status, got %v", status)
	}
	if len(c.sent) != 1 {
		t.Fatalf("expected exactly one response sent, got %d", len(c.sent))
	}

	resp := c.sent[0]
	if len(resp) < 4 {
		t.Fatalf("response too short: %d bytes", len(resp))
	}
	checksum := binary.LittleEndian.Uint32(resp[:4])
	region := resp[4:]
	if adler32.Checksum(region) != checksum {
		t.Fatalf("checksum mismatch over encrypted region")
	}
	if len(region)%8 != 0 {
		t.Fatalf("expected encrypted region padded to a multiple of 8, got %d", len(region))
	}
}

func TestReplayedAccountNameIsRejected(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{Motd: "hi"})

	first := buildFirstMessage(t, &priv.PublicKey, [4]uint32{1, 2, 3, 4}, "dup-account", "pass")
	if status := p.OnRecvFirstMessage(&fakeConn{}, nil, first); status != protocol.Close {
		t.Fatalf("expected first handshake to succeed, got %v", status)
	}

	second := buildFirstMessage(t, &priv.PublicKey, [4]uint32{5, 6, 7, 8}, "dup-account", "pass")
	if status := p.OnRecvFirstMessage(&fakeConn{}, nil, second); status != protocol.Abort {
		t.Fatalf("expected replayed account name to abort, got %v", status)
	}
}

func TestShutdownClosesNonceCache(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{})
	p.Shutdown()
}

func TestWrongLengthFirstMessageAborts(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{})

	status := p.OnRecvFirstMessage(&fakeConn{}, nil, make([]byte, 10))
	if status != protocol.Abort {
		t.Fatalf("expected Abort for a malformed length, got %v", status)
	}
}

func TestOnWriteAlwaysCloses(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{})
	if p.OnWrite(nil, nil) != protocol.Close {
		t.Fatalf("expected OnWrite to always request Close")
	}
}

func TestSendsFirstIsFalse(t *testing.T) {
	priv, _ := rsa.GenerateKey(rand.Reader, 1024)
	p := login.New(login.NewKeyDecoder(priv), login.StaticLookup{})
	if p.SendsFirst() {
		t.Fatalf("login must not be a sends-first protocol")
	}
}
