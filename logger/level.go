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

// Package logger wraps sirupsen/logrus with the level vocabulary, color
// formatting, and jwalterweatherman bridge the rest of the kaplar/spf13
// ecosystem expects, standing in for the original's LOG/LOG_WARNING/
// LOG_ERROR/DEBUG_LOG macros.
package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Level mirrors logrus.Level plus a NilLevel sentinel that fully disables
// output, matching the original's "debug logging compiled out" toggle.
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	NilLevel
)

func (l Level) String() string {
	switch l {
	case PanicLevel:
		return "panic"
	case FatalLevel:
		return "fatal"
	case ErrorLevel:
		return "error"
	case WarnLevel:
		return "warning"
	case InfoLevel:
		return "info"
	case DebugLevel:
		return "debug"
	case NilLevel:
		return "nil"
	}
	return "unknown"
}

// Logrus converts to the equivalent logrus.Level. NilLevel has no logrus
// equivalent; callers should check for it before calling this.
func (l Level) Logrus() logrus.Level {
	switch l {
	case PanicLevel:
		return logrus.PanicLevel
	case FatalLevel:
		return logrus.FatalLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case InfoLevel:
		return logrus.InfoLevel
	case DebugLevel:
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// GetLevelListString lists the level names accepted by GetLevelString,
// except NilLevel's name, which GetLevelString also accepts.
func GetLevelListString() []string {
	return []string{
		PanicLevel.String(), FatalLevel.String(), ErrorLevel.String(),
		WarnLevel.String(), InfoLevel.String(), DebugLevel.String(),
	}
}

// GetLevelString resolves a case-insensitive level name, defaulting to
// InfoLevel for anything unrecognized.
func GetLevelString(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case PanicLevel.String():
		return PanicLevel
	case FatalLevel.String():
		return FatalLevel
	case ErrorLevel.String():
		return ErrorLevel
	case WarnLevel.String():
		return WarnLevel
	case InfoLevel.String():
		return InfoLevel
	case DebugLevel.String():
		return DebugLevel
	case NilLevel.String():
		return NilLevel
	}
	return InfoLevel
}
