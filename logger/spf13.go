/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
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

	jww "github.com/spf13/jwalterweatherman"
	"github.com/sirupsen/logrus"
)

// BridgeSPF13 redirects jwalterweatherman's global logger - the one viper
// uses internally for config-merge diagnostics - into l, at the threshold
// corresponding to lvl.
func BridgeSPF13(l *logrus.Logger, lvl Level) {
	if lvl == NilLevel {
		jww.SetLogOutput(io.Discard)
		jww.SetStdoutOutput(io.Discard)
		jww.SetLogThreshold(jww.LevelCritical)
		return
	}

	w := l.Writer()
	jww.SetLogOutput(w)
	jww.SetStdoutOutput(w)

	switch lvl {
	case DebugLevel:
		jww.SetLogThreshold(jww.LevelTrace)
	case InfoLevel:
		jww.SetLogThreshold(jww.LevelInfo)
	case WarnLevel:
		jww.SetLogThreshold(jww.LevelWarn)
	case ErrorLevel:
		jww.SetLogThreshold(jww.LevelError)
	case FatalLevel:
		jww.SetLogThreshold(jww.LevelFatal)
	case PanicLevel:
		jww.SetLogThreshold(jww.LevelCritical)
	}
}
