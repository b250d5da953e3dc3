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

import "golang.org/x/crypto/xtea"

// xteaEncodeECB encrypts data in place, 8 bytes at a time, with the
// legacy client's raw-ECB XTEA framing (no IV, no padding scheme beyond
// the caller having already rounded data up to a multiple of 8 with
// 0x33 filler bytes).
func xteaEncodeECB(key [4]uint32, data []byte) error {
	var keyBytes [16]byte
	for i, k := range key {
		keyBytes[i*4+0] = byte(k)
		keyBytes[i*4+1] = byte(k >> 8)
		keyBytes[i*4+2] = byte(k >> 16)
		keyBytes[i*4+3] = byte(k >> 24)
	}
	cipher, err := xtea.NewCipher(keyBytes[:])
	if err != nil {
		return err
	}
	for off := 0; off+8 <= len(data); off += 8 {
		cipher.Encrypt(data[off:off+8], data[off:off+8])
	}
	return nil
}

// xteaDecodeECB is the inverse of xteaEncodeECB; unused by the responder
// but kept for symmetry and for any future inbound-encrypted message.
func xteaDecodeECB(key [4]uint32, data []byte) error {
	var keyBytes [16]byte
	for i, k := range key {
		keyBytes[i*4+0] = byte(k)
		keyBytes[i*4+1] = byte(k >> 8)
		keyBytes[i*4+2] = byte(k >> 16)
		keyBytes[i*4+3] = byte(k >> 24)
	}
	cipher, err := xtea.NewCipher(keyBytes[:])
	if err != nil {
		return err
	}
	for off := 0; off+8 <= len(data); off += 8 {
		cipher.Decrypt(data[off:off+8], data[off:off+8])
	}
	return nil
}
