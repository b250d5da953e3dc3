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

package login

import (
	"encoding/binary"
	"hash/adler32"
)

// encodeResponse wraps plaintext payload in the handshake's encrypted
// response body: a u16 plaintext length is prepended, the whole region
// is padded with 0x33 to a multiple of 8 bytes, XTEA-encrypted in place,
// and checksummed - the exact layout writer_begin/writer_end produce,
// short of the outer u16 frame length, which the connection runtime's
// generic length-prefix framing supplies (frame_len = encrypted_len + 4
// is exactly "4 checksum bytes plus the rest of this body", the same
// relationship the generic framer maintains for every protocol's output).
func encodeResponse(key [4]uint32, payload []byte) ([]byte, error) {
	region := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(region, uint16(len(payload)))
	copy(region[2:], payload)

	padding := (8 - (len(region) & 7)) & 7
	for i := 0; i < padding; i++ {
		region = append(region, 0x33)
	}

	if err := xteaEncodeECB(key, region); err != nil {
		return nil, err
	}

	checksum := adler32.Checksum(region)

	body := make([]byte, 4+len(region))
	binary.LittleEndian.PutUint32(body, checksum)
	copy(body[4:], region)
	return body, nil
}
