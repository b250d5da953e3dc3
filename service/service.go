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

// Package service is the per-port protocol registry: it binds one to four
// compatible protocols to a listening port and resolves which protocol
// owns a freshly accepted connection by sniffing its first bytes.
package service

import (
	"sync"

	"github.com/sabouaram/kaplar/errors"
	"github.com/sabouaram/kaplar/protocol"
)

func init() {
	errors.Register(errors.MinPkgService+1, "service table full")
	errors.Register(errors.MinPkgService+2, "too many protocols for this service")
	errors.Register(errors.MinPkgService+3, "sends-first protocol cannot share a port")
}

// MaxProtocolsPerService caps how many protocols one port may host.
const MaxProtocolsPerService = 4

var (
	// ErrTableFull is returned when the registry already holds the maxPorts
	// services given to NewRegistry.
	ErrTableFull = errors.MinPkgService + 1
	// ErrTooManyProtocols is returned once a service already holds
	// MaxProtocolsPerService protocols.
	ErrTooManyProtocols = errors.MinPkgService + 2
	// ErrSendsFirstConflict is returned when adding a sends-first protocol
	// to a service that already hosts one, or vice versa.
	ErrSendsFirstConflict = errors.MinPkgService + 3
)

// Service owns the set of protocols bound to one listening port.
type Service struct {
	Port      int
	protocols []protocol.Handler
}

// Protocols returns the protocols bound to this service, in registration
// order.
func (s *Service) Protocols() []protocol.Handler {
	return s.protocols
}

// SelectProtocol returns the first protocol whose Identify accepts
// firstBytes. A single-protocol service skips identification entirely,
// since there is nothing to discriminate.
func (s *Service) SelectProtocol(firstBytes []byte) protocol.Handler {
	if len(s.protocols) == 1 {
		return s.protocols[0]
	}
	for _, p := range s.protocols {
		if p.Identify(firstBytes) {
			return p
		}
	}
	return nil
}

func (s *Service) hasSendsFirst() bool {
	for _, p := range s.protocols {
		if p.SendsFirst() {
			return true
		}
	}
	return false
}

// Registry maps listening ports to services. Registry methods take an
// internal lock, but a *Service they return is read without locking, so
// callers typically build the full registry at startup and then treat it
// as read-only, matching the spec's
// "no dynamic protocol registration after start" non-goal.
type Registry struct {
	mu       sync.RWMutex
	services map[int]*Service
	maxPorts int
}

// NewRegistry creates a Registry admitting up to maxPorts distinct
// services.
func NewRegistry(maxPorts int) *Registry {
	return &Registry{
		services: make(map[int]*Service),
		maxPorts: maxPorts,
	}
}

// AddProtocol binds proto to port, creating the service if needed.
func (r *Registry) AddProtocol(port int, proto protocol.Handler) (*Service, errors.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[port]
	if !ok {
		if len(r.services) >= r.maxPorts {
			return nil, ErrTableFull.Error()
		}
		svc = &Service{Port: port}
		r.services[port] = svc
	}

	if len(svc.protocols) >= MaxProtocolsPerService {
		return nil, ErrTooManyProtocols.Error()
	}
	if proto.SendsFirst() && len(svc.protocols) > 0 {
		return nil, ErrSendsFirstConflict.Error()
	}
	if !proto.SendsFirst() && svc.hasSendsFirst() {
		return nil, ErrSendsFirstConflict.Error()
	}

	if err := proto.Init(); err != nil {
		return nil, errors.Make(err)
	}
	svc.protocols = append(svc.protocols, proto)
	return svc, nil
}

// Get returns the service bound to port, if any.
func (r *Registry) Get(port int) (*Service, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[port]
	return s, ok
}

// Ports returns every bound port.
func (r *Registry) Ports() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, 0, len(r.services))
	for p := range r.services {
		out = append(out, p)
	}
	return out
}

// Shutdown calls Shutdown on every registered protocol exactly once.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[protocol.Handler]bool)
	for _, svc := range r.services {
		for _, p := range svc.protocols {
			if !seen[p] {
				seen[p] = true
				p.Shutdown()
			}
		}
	}
}
