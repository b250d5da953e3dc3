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

// Package message implements the length-prefixed wire buffer shared by
// every protocol: a fixed-capacity byte buffer with a typed read/write
// cursor, mirroring the original's Message{buffer, length, readpos}.
package message

import (
	"encoding/binary"

	"github.com/sabouaram/kaplar/errors"
)

func init() {
	errors.Register(errors.MinPkgMessage+1, "message buffer overflow")
	errors.Register(errors.MinPkgMessage+2, "message read out of bounds")
}

// ErrOverflow is returned by Add* once the buffer would exceed MaxPayload.
var ErrOverflow = errors.MinPkgMessage + 1

// ErrOutOfBounds is returned by Get*/GetString when the cursor would read
// past the populated length.
var ErrOutOfBounds = errors.MinPkgMessage + 2

// MaxPayload bounds a single framed message body, matching the ~16 KiB
// ceiling on framed input.
const MaxPayload = 16 * 1024

// Message is a length-prefixed byte buffer with a read cursor for decoding
// and an append cursor for encoding. The zero value is ready to use.
type Message struct {
	buffer  []byte
	length  int // populated length (bytes actually holding data)
	readPos int
}

// New creates an empty message with capacity preallocated.
func New() *Message {
	return &Message{buffer: make([]byte, 0, MaxPayload)}
}

// Reset clears the buffer and cursor for reuse.
func (m *Message) Reset() {
	m.buffer = m.buffer[:0]
	m.length = 0
	m.readPos = 0
}

// SetBody replaces the message contents with body, resetting the read
// cursor to zero; used once a full frame has been received off the wire.
func (m *Message) SetBody(body []byte) {
	if cap(m.buffer) < len(body) {
		m.buffer = make([]byte, len(body))
	} else {
		m.buffer = m.buffer[:len(body)]
	}
	copy(m.buffer, body)
	m.length = len(body)
	m.readPos = 0
}

// Len returns the populated length.
func (m *Message) Len() int {
	return m.length
}

// Bytes returns the populated region.
func (m *Message) Bytes() []byte {
	return m.buffer[:m.length]
}

// Remaining returns how many unread bytes are left under the cursor.
func (m *Message) Remaining() int {
	return m.length - m.readPos
}

func (m *Message) ensure(n int) errors.Error {
	if m.length+n > MaxPayload {
		return ErrOverflow.Error()
	}
	return nil
}

// AddU8 appends a single byte.
func (m *Message) AddU8(v uint8) errors.Error {
	if err := m.ensure(1); err != nil {
		return err
	}
	m.buffer = append(m.buffer[:m.length], v)
	m.length++
	return nil
}

// AddU16 appends v little-endian.
func (m *Message) AddU16(v uint16) errors.Error {
	if err := m.ensure(2); err != nil {
		return err
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	m.buffer = append(m.buffer[:m.length], b[:]...)
	m.length += 2
	return nil
}

// AddU32 appends v little-endian.
func (m *Message) AddU32(v uint32) errors.Error {
	if err := m.ensure(4); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	m.buffer = append(m.buffer[:m.length], b[:]...)
	m.length += 4
	return nil
}

// AddBytes appends raw bytes with no length prefix.
func (m *Message) AddBytes(v []byte) errors.Error {
	if err := m.ensure(len(v)); err != nil {
		return err
	}
	m.buffer = append(m.buffer[:m.length], v...)
	m.length += len(v)
	return nil
}

// AddString appends a u16 length prefix followed by the string bytes.
func (m *Message) AddString(s string) errors.Error {
	if err := m.AddU16(uint16(len(s))); err != nil {
		return err
	}
	return m.AddBytes([]byte(s))
}

// GetU8 reads one byte and advances the cursor.
func (m *Message) GetU8() (uint8, errors.Error) {
	if m.Remaining() < 1 {
		return 0, ErrOutOfBounds.Error()
	}
	v := m.buffer[m.readPos]
	m.readPos++
	return v, nil
}

// GetU16 reads a little-endian u16 and advances the cursor.
func (m *Message) GetU16() (uint16, errors.Error) {
	if m.Remaining() < 2 {
		return 0, ErrOutOfBounds.Error()
	}
	v := binary.LittleEndian.Uint16(m.buffer[m.readPos:])
	m.readPos += 2
	return v, nil
}

// GetU32 reads a little-endian u32 and advances the cursor.
func (m *Message) GetU32() (uint32, errors.Error) {
	if m.Remaining() < 4 {
		return 0, ErrOutOfBounds.Error()
	}
	v := binary.LittleEndian.Uint32(m.buffer[m.readPos:])
	m.readPos += 4
	return v, nil
}

// GetBytes reads n raw bytes and advances the cursor.
func (m *Message) GetBytes(n int) ([]byte, errors.Error) {
	if m.Remaining() < n {
		return nil, ErrOutOfBounds.Error()
	}
	v := m.buffer[m.readPos : m.readPos+n]
	m.readPos += n
	return v, nil
}

// GetString reads a u16 length prefix followed by that many bytes.
func (m *Message) GetString() (string, errors.Error) {
	n, err := m.GetU16()
	if err != nil {
		return "", err
	}
	b, err := m.GetBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
