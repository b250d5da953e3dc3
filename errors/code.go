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

package errors

// CodeError is a small numeric error classification, grouped by package
// the same way the teacher corpus groups its own (see the MinPkg* table):
// each package reserves a range of 100 codes starting at its Min constant.
type CodeError uint16

const (
	UnknownError CodeError = 0

	MinPkgSlab       CodeError = 100
	MinPkgAVLTree    CodeError = 200
	MinPkgScheduler  CodeError = 300
	MinPkgMessage    CodeError = 400
	MinPkgService    CodeError = 500
	MinPkgConnection CodeError = 600
	MinPkgSocket     CodeError = 700
	MinPkgWorkPool   CodeError = 800
	MinPkgServer     CodeError = 900
	MinPkgProtoEcho  CodeError = 1000
	MinPkgProtoLogin CodeError = 1100
	MinPkgConfig     CodeError = 1200

	MinAvailable CodeError = 2000
)

var messages = map[CodeError]string{
	UnknownError: "unknown error",
}

// Register associates a human-readable message with a code. Intended to be
// called from package init() functions, one call per code, following the
// Min* base of that package.
func Register(code CodeError, message string) CodeError {
	messages[code] = message
	return code
}

// Message returns the registered message for the code, or a generic
// placeholder if none was registered.
func (c CodeError) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "unregistered error code"
}

// Error builds a new Error from this code, with optional parents.
func (c CodeError) Error(parent ...error) Error {
	return New(c, c.Message(), parent...)
}
