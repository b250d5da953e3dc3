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

package connection

import "github.com/bits-and-blooms/bitset"

// Flag bit positions. The original encodes these as non-exclusive bits in
// a single integer; bitset.BitSet is this module's ambient "small set of
// bits" type, reused here instead of a hand-rolled bitmask so the
// connection's orthogonal concerns (is it readable? writable? seen its
// first message?) stay independently testable bits.
const (
	flagNew = iota
	flagReady
	flagReadingLength
	flagPartialLength
	flagFirstMsg
	flagShutdown
	flagClosed

	flagCount
)

// flags wraps a bitset.BitSet sized to the fixed flagCount, giving the
// connection state machine named, independently-settable bits instead of
// a raw integer mask.
type flags struct {
	bits *bitset.BitSet
}

func newFlags() flags {
	return flags{bits: bitset.New(flagCount)}
}

func (f flags) set(bit uint) {
	f.bits.Set(bit)
}

func (f flags) clear(bit uint) {
	f.bits.Clear(bit)
}

func (f flags) has(bit uint) bool {
	return f.bits.Test(bit)
}
