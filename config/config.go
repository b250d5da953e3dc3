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

// Package config is the server's key/value configuration store: a set of
// builtin defaults (the original's config_defaults table), overridable by a
// config file and then by cmdline "key=value" arguments, with an optional
// fsnotify-backed watch for live file reloads. Unlike the original's Lua
// script, the file format here is whatever viper's decoders support
// (YAML/JSON/TOML/...); scripting itself is out of scope.
package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/sabouaram/kaplar/duration"
	"github.com/sabouaram/kaplar/errors"
)

func init() {
	errors.Register(errors.MinPkgConfig+1, "config file load failed")
	errors.Register(errors.MinPkgConfig+2, "unknown config key")
}

// ErrLoadFailed is returned when the configured file cannot be read/parsed.
var ErrLoadFailed = errors.MinPkgConfig + 1

// ErrUnknownKey is returned by ApplyArgs for a cmdline override naming a key
// absent from Defaults, mirroring the original's config_var_find-returns-
// NULL "invalid config var from cmdline" warning path.
var ErrUnknownKey = errors.MinPkgConfig + 2

// Defaults mirrors the original's config_defaults table: every key the
// server understands, with its out-of-the-box value.
func Defaults() map[string]string {
	return map[string]string{
		"config": "config.yaml",

		"sv_name": "Kaplar",
		"sv_addr": "127.0.0.1",

		"sv_echo_port":  "7777",
		"sv_login_port": "7171",
		"sv_info_port":  "7171",
		"sv_game_port":  "7172",

		"tick_interval": "50",

		"pgsql_host":             "localhost",
		"pgsql_port":             "5432",
		"pgsql_dbname":           "kaplar",
		"pgsql_user":             "admin",
		"pgsql_password":         "admin",
		"pgsql_connect_timeout":  "5",
		"pgsql_client_encoding":  "UTF8",
		"pgsql_application_name": "kaplarc",

		"motd": "1\nKaplar!",
	}
}

// Store wraps a viper.Viper seeded with Defaults, overridable by a config
// file and then by cmdline arguments.
type Store struct {
	mu  sync.RWMutex
	vpr *viper.Viper
}

// New returns a Store with every Defaults() key preloaded.
func New() *Store {
	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}
	return &Store{vpr: v}
}

// LoadFile merges path's contents over the current values. The format is
// inferred from the file extension (viper's SetConfigFile behavior).
func (s *Store) LoadFile(path string) errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vpr.SetConfigFile(path)
	if err := s.vpr.MergeInConfig(); err != nil {
		return ErrLoadFailed.Error(err)
	}
	return nil
}

// Watch starts an fsnotify watch on the currently loaded config file,
// invoking onChange after each reload. It returns immediately; the watch
// runs for the lifetime of the process, matching viper.WatchConfig's own
// fire-and-forget contract.
func (s *Store) Watch(onChange func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vpr.OnConfigChange(func(fsnotify.Event) {
		if onChange != nil {
			onChange()
		}
	})
	s.vpr.WatchConfig()
}

// ApplyArgs parses a "key=value" or bare "key" argument list the way the
// original's parse_argv did: a bare key sets "true", an unknown key
// produces ErrUnknownKey for that one argument rather than aborting the
// whole pass, and parsing continues with whatever could be applied.
func (s *Store) ApplyArgs(args []string) []errors.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []errors.Error
	known := Defaults()

	for _, arg := range args {
		key, val, hasVal := strings.Cut(arg, "=")
		if key == "" {
			continue
		}
		if _, ok := known[key]; !ok {
			errs = append(errs, ErrUnknownKey.Error())
			continue
		}
		if !hasVal {
			val = "true"
		}
		s.vpr.Set(key, val)
	}
	return errs
}

func (s *Store) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vpr.GetString(key)
}

func (s *Store) GetInt(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vpr.GetInt(key)
}

// GetDuration reads key through duration.Parse, so a bare integer such as
// tick_interval's "50" is read as milliseconds while deadline-style keys
// may instead hold a Go duration string ("500ms").
func (s *Store) GetDuration(key string) (duration.Duration, error) {
	s.mu.RLock()
	v := s.vpr.GetString(key)
	s.mu.RUnlock()
	return duration.Parse(v)
}

func (s *Store) GetBool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vpr.GetBool(key)
}

// Set overrides a single key at runtime.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vpr.Set(key, value)
}

// Viper exposes the underlying *viper.Viper for callers (e.g. component
// UnmarshalKey) that need more than the typed getters above.
func (s *Store) Viper() *viper.Viper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vpr
}
