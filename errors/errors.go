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

// Package errors provides the error classification used across the kaplar
// networking core: a numeric CodeError per failure class (resource
// exhaustion, protocol violation, I/O, deadline, configuration - see
// spec.md §7), parent chaining so a low-level cause (a *net.OpError, a
// decode failure) can be wrapped under its classification, and
// errors.Is/errors.As compatibility.
package errors

import (
	"errors"
	"runtime"
	"strings"
)

// Error extends the standard error with a numeric code and parent chaining.
type Error interface {
	error

	// IsCode reports whether the error's own code matches.
	IsCode(code CodeError) bool
	// HasCode reports whether the error or any parent has the given code.
	HasCode(code CodeError) bool
	// GetCode returns the error's own code.
	GetCode() CodeError

	// Add appends non-nil parents to this error's cause chain.
	Add(parent ...error)
	// HasParent reports whether any parent is registered.
	HasParent() bool
	// GetParent returns the direct parents.
	GetParent() []error

	// GetTrace returns the file:line:func of where the error was created.
	GetTrace() string

	// Unwrap supports errors.Is / errors.As over the parent chain.
	Unwrap() []error
}

type ers struct {
	c CodeError
	m string
	p []error
	t runtime.Frame
}

// New creates an Error with the given code, message and optional parents.
func New(code CodeError, message string, parent ...error) Error {
	e := &ers{
		c: code,
		m: message,
		t: getFrame(),
	}
	e.Add(parent...)
	return e
}

func (e *ers) Error() string {
	if e.m == "" {
		return e.c.Message()
	}
	return e.m
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}
	for _, p := range e.p {
		if Has(p, code) {
			return true
		}
	}
	return false
}

func (e *ers) GetCode() CodeError {
	return e.c
}

func (e *ers) Add(parent ...error) {
	for _, v := range parent {
		if v == nil {
			continue
		}
		e.p = append(e.p, v)
	}
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

func (e *ers) GetParent() []error {
	return e.p
}

func (e *ers) GetTrace() string {
	if e.t.Function == "" {
		return ""
	}
	return e.t.Function + "@" + e.t.File + ":" + itoa(e.t.Line)
}

func (e *ers) Unwrap() []error {
	return e.p
}

// Is checks whether err is one of our Error values, per errors.As.
func Is(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// Get returns err as an Error if it is one, nil otherwise.
func Get(err error) Error {
	var e Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Has reports whether err carries the given code, anywhere in its chain.
func Has(err error, code CodeError) bool {
	if e := Get(err); e != nil {
		return e.HasCode(code)
	}
	return false
}

// Make wraps a plain error into an Error with code UnknownError, or returns
// it unchanged if it already is one.
func Make(err error) Error {
	if err == nil {
		return nil
	}
	if e := Get(err); e != nil {
		return e
	}
	return New(UnknownError, err.Error())
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func getFrame() runtime.Frame {
	pc := make([]uintptr, 24)
	n := runtime.Callers(3, pc)
	if n == 0 {
		return runtime.Frame{}
	}
	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, "sabouaram/kaplar/errors") {
			return frame
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}
}
