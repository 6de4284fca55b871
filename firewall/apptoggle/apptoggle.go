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

// Package apptoggle implements the all-or-nothing backend: per-app network
// access is switched off entirely through the privileged broker. No granular
// control - an app is either fully blocked on every network or fully allowed.
package apptoggle

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/rules"
)

// client is the slice of the broker client the backend depends on
type client interface {
	Ping() error
	DisableNetwork(uid int) error
	EnableNetwork(uid int) error
	DisabledUIDs() ([]int, error)
}

// Backend drives the OS-level per-app network toggle via the broker
type Backend struct {
	broker client

	mu      sync.Mutex
	active  bool
	blocked rules.UIDSet
}

// New returns a stopped app-toggle backend talking to the given broker
func New(broker client) *Backend {
	return &Backend{
		broker:  broker,
		blocked: rules.NewUIDSet(),
	}
}

// Start disables network access for every UID in the blocked set
func (b *Backend) Start(blocked rules.UIDSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.broker.Ping(); err != nil {
		return err
	}
	for _, uid := range blocked.List() {
		if err := b.broker.DisableNetwork(uid); err != nil {
			b.rollback(blocked, uid)
			return err
		}
	}
	b.blocked = rules.NewUIDSet(blocked.List()...)
	b.active = true
	return nil
}

// rollback re-enables UIDs disabled before a failed start, up to the one that failed
func (b *Backend) rollback(blocked rules.UIDSet, failedUID int) {
	for _, uid := range blocked.List() {
		if uid == failedUID {
			return
		}
		if err := b.broker.EnableNetwork(uid); err != nil {
			log.Warn().Err(err).Int("uid", uid).Msg("Rollback of partial start failed")
		}
	}
}

// ApplyDiff toggles network access per UID, skipping entries already in the
// requested state.
func (b *Backend) ApplyDiff(added, removed []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return firewall.ErrBecameInactive
	}
	for _, uid := range added {
		if b.blocked.Contains(uid) {
			continue
		}
		if err := b.broker.DisableNetwork(uid); err != nil {
			return err
		}
		b.blocked.Add(uid)
	}
	for _, uid := range removed {
		if !b.blocked.Contains(uid) {
			continue
		}
		if err := b.broker.EnableNetwork(uid); err != nil {
			return err
		}
		delete(b.blocked, uid)
	}
	return nil
}

// Stop restores network access for everything this backend disabled
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, uid := range b.blocked.List() {
		if err := b.broker.EnableNetwork(uid); err != nil {
			return err
		}
		delete(b.blocked, uid)
	}
	b.active = false
	return nil
}

// IsActive verifies with the broker that every blocked UID is still disabled.
// The broker process can be replaced or lose privilege at any time.
func (b *Backend) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return false
	}
	disabled, err := b.broker.DisabledUIDs()
	if err != nil {
		return false
	}
	disabledSet := rules.NewUIDSet(disabled...)
	for uid := range b.blocked {
		if !disabledSet.Contains(uid) {
			return false
		}
	}
	return true
}

// SupportsGranularControl reports per-network-class capability
func (b *Backend) SupportsGranularControl() bool {
	return firewall.AppToggle.SupportsGranularControl()
}

var _ firewall.Backend = (*Backend)(nil)
