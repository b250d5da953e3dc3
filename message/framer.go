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

package message

import "encoding/binary"

// Frame prepends msg with its u16 little-endian length prefix, the wire
// format every protocol response uses.
func Frame(payload []byte) []byte {
	out := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(out, uint16(len(payload)))
	copy(out[2:], payload)
	return out
}

// FrameState tracks the length-prefix half of framing across arbitrary
// read chunk boundaries - in particular the "1 byte of the 2-byte prefix
// arrived, then the rest arrives later" split the connection runtime must
// tolerate.
type FrameState struct {
	lengthBuf  [2]byte
	lengthHave int
	wantLength int
	haveLength bool
}

// Reset returns the state to awaiting a fresh length prefix.
func (f *FrameState) Reset() {
	f.lengthHave = 0
	f.wantLength = 0
	f.haveLength = false
}

// FeedLength consumes as much of p as is needed to complete the 2-byte
// length prefix, returning the number of bytes consumed and whether the
// prefix is now complete.
func (f *FrameState) FeedLength(p []byte) (consumed int, complete bool) {
	for f.lengthHave < 2 && consumed < len(p) {
		f.lengthBuf[f.lengthHave] = p[consumed]
		f.lengthHave++
		consumed++
	}
	if f.lengthHave == 2 {
		f.wantLength = int(binary.LittleEndian.Uint16(f.lengthBuf[:]))
		f.haveLength = true
		return consumed, true
	}
	return consumed, false
}

// BodyLength returns the decoded payload length once FeedLength completed.
func (f *FrameState) BodyLength() int {
	return f.wantLength
}
