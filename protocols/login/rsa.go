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
	"crypto/rand"
	"crypto/rsa"
)

// KeyDecoder is the handshake's public-key decode step. The spec treats
// the client's RSA variant as an external black box the handler merely
// consumes; this interface is that contract, letting the legacy
// non-OAEP/non-PKCS1 wire format (a raw 128-byte modular exponentiation
// block, padding scheme unspecified by the distilled spec) be supplied by
// whatever key material the deployment holds without this package caring
// how it was produced.
type KeyDecoder interface {
	// Decode decrypts a 128-byte RSA block in place, returning the
	// plaintext length (the legacy client pads with zero bytes - the
	// decoder reports how much of the block is meaningful).
	Decode(block []byte) (plainLen int, err error)
}

// rsaKeyDecoder adapts a crypto/rsa.PrivateKey to KeyDecoder using
// PKCS#1 v1.5 decryption, the closest stdlib primitive to the legacy
// client's raw RSA block; no ecosystem example library in this corpus
// offers an RSA implementation, so crypto/rsa is used directly rather
// than introducing a dependency with no prior grounding.
type rsaKeyDecoder struct {
	priv *rsa.PrivateKey
}

// NewKeyDecoder wraps priv as a KeyDecoder.
func NewKeyDecoder(priv *rsa.PrivateKey) KeyDecoder {
	return &rsaKeyDecoder{priv: priv}
}

func (d *rsaKeyDecoder) Decode(block []byte) (int, error) {
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, d.priv, block)
	if err != nil {
		return 0, err
	}
	copy(block, plain)
	return len(plain), nil
}
