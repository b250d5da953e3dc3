/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
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

package logger

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger at the given level, writing to out (os.Stderr
// when nil). forceColor forces ANSI colorized output unless fatih/color has
// disabled color for the process (color.NoColor); with forceColor false,
// colors are disabled entirely.
func New(lvl Level, out io.Writer, forceColor bool) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		ForceColors:     forceColor && color.NoColor == false,
		DisableColors:   !forceColor,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if lvl == NilLevel {
		l.SetOutput(io.Discard)
		l.SetLevel(logrus.PanicLevel)
	} else {
		l.SetLevel(lvl.Logrus())
	}

	return l
}

// Fields is a thin alias over logrus.Fields for call sites that don't want
// to import logrus directly just to attach structured context.
type Fields = logrus.Fields
