/*
 * Copyright (C) 2025 The "NetFence" Authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package firewall defines the capability interface every traffic-blocking
// backend satisfies, and the plumbing shared by the concrete adapters.
package firewall

import (
	"github.com/netfence/netfence/rules"
)

// Kind enumerates the mutually-exclusive blocking backends
type Kind string

const (
	// Tunnel is the userspace TUN interception backend. Always available
	// once the one-time tunnel permission has been granted.
	Tunnel = Kind("tunnel")
	// UIDFilter is the kernel packet-filter backend driven through a
	// root-equivalent shell. Granular, requires root.
	UIDFilter = Kind("uidfilter")
	// AppToggle is the OS-level all-or-nothing per-app network disable,
	// driven through the privileged broker.
	AppToggle = Kind("apptoggle")
)

// SupportsGranularControl reports whether the backend kind can block an app
// independently per network class.
func (k Kind) SupportsGranularControl() bool {
	return k != AppToggle
}

// ParseKind maps a config value to a backend kind; unknown values yield ""
func ParseKind(value string) (Kind, bool) {
	switch Kind(value) {
	case Tunnel, UIDFilter, AppToggle:
		return Kind(value), true
	}
	return Kind(""), false
}

// Backend is one concrete mechanism for blocking per-app network traffic.
// Implementations are independent; exactly one is active at a time, selected
// by the orchestrator.
type Backend interface {
	// Start brings the backend up with the initial blocked set. It blocks
	// until the underlying mechanism accepted the rules, not until traffic
	// is verifiably dropped - confirmation is IsActive's job.
	Start(blocked rules.UIDSet) error
	// ApplyDiff incrementally adjusts the blocked set. Must be idempotent
	// and must not require a restart.
	ApplyDiff(added, removed []int) error
	// Stop tears the backend down, unblocking everything it blocked.
	Stop() error
	// IsActive reports whether the blocking mechanism is verifiably live.
	IsActive() bool
	// SupportsGranularControl mirrors Kind.SupportsGranularControl.
	SupportsGranularControl() bool
}

// Creator builds a fresh backend instance of one kind
type Creator func() (Backend, error)

// Registry holds all plugable backends by kind
type Registry struct {
	creators map[Kind]Creator
}

// NewRegistry creates registry of plugable backends
func NewRegistry() *Registry {
	return &Registry{
		creators: make(map[Kind]Creator),
	}
}

// Register a new plugable backend
func (registry *Registry) Register(kind Kind, creator Creator) {
	registry.creators[kind] = creator
}

// CreateBackend creates a fresh backend instance of the given kind
func (registry *Registry) CreateBackend(kind Kind) (Backend, error) {
	createBackend, exists := registry.creators[kind]
	if !exists {
		return nil, ErrUnsupportedKind
	}
	return createBackend()
}
