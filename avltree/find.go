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

package avltree

// FindBy performs a heterogeneous lookup: q need not be K itself, as long
// as cmp can order a K against a Q (e.g. searching a tree of connections
// keyed by struct by a bare file descriptor). This mirrors the original's
// templated find<G>, which compared nodes against any type offering a
// compatible operator<.
func FindBy[K any, V any, Q any](t *Tree[K, V], q Q, cmp func(key K, probe Q) int) (Handle, bool) {
	cur := t.root
	for cur != 0 {
		n := t.at(cur)
		c := cmp(n.key, q)
		switch {
		case c == 0:
			return cur, true
		case c > 0:
			cur = n.left
		default:
			cur = n.right
		}
	}
	return 0, false
}
