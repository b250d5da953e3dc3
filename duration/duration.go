/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

// Package duration wraps time.Duration with days notation in String, and a
// Parse that accepts both Go duration strings ("1h30m") and bare integers,
// the latter read as milliseconds - the unit the original config's
// tick_interval and deadline entries stored as plain decimal text.
package duration

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type Duration time.Duration

// Parse accepts a Go duration string ("500ms", "5s") or a bare integer,
// which is read as a millisecond count.
func Parse(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Milliseconds(n), nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return Duration(v), nil
}

// Milliseconds returns a Duration representing i milliseconds.
func Milliseconds(i int64) Duration {
	return Duration(time.Duration(i) * time.Millisecond)
}

// Seconds returns a Duration representing i seconds.
func Seconds(i int64) Duration {
	return Duration(time.Duration(i) * time.Second)
}

// Minutes returns a Duration representing i minutes.
func Minutes(i int64) Duration {
	return Duration(time.Duration(i) * time.Minute)
}

// FromTime converts a time.Duration into a Duration with no change in value.
func FromTime(d time.Duration) Duration {
	return Duration(d)
}

// Time returns the time.Duration representation, for use with the rest of
// the standard library's time-based APIs.
func (d Duration) Time() time.Duration {
	return time.Duration(d)
}

// Days returns the number of whole days represented by d.
func (d Duration) Days() int64 {
	t := math.Floor(d.Time().Hours() / 24)
	if t > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(t)
}

// String renders d as "NdNhNmNs", omitting the day component when zero.
func (d Duration) String() string {
	n := d.Days()
	i := d.Time()

	var s string
	if n > 0 {
		i -= time.Duration(n) * 24 * time.Hour
		s = strconv.FormatInt(n, 10) + "d"
	}
	if n < 1 || i > 0 {
		s += i.String()
	}
	return s
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Time().String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
