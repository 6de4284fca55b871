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

// Package tunnel implements the userspace interception backend: traffic of
// blocked UIDs is routed into a TUN device and discarded there. It needs no
// elevated privilege beyond the one-time tunnel permission, which makes it
// the universal fallback.
package tunnel

import (
	"io"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/songgao/water"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/rules"
	"github.com/netfence/netfence/utils/cmdutil"
)

// device is the subset of the TUN interface the backend depends on
type device interface {
	io.ReadCloser
	Name() string
}

// openDevice opens the TUN device. Variable for tests.
var openDevice = func(name string) (device, error) {
	ifce, err := water.New(water.Config{
		DeviceType: water.TUN,
		PlatformSpecificParams: water.PlatformSpecificParams{
			Name: name,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open TUN device")
	}
	return ifce, nil
}

// routeUIDs points routing of the given UIDs at the TUN device. Variable for tests.
var routeUIDs = func(ifaceName string, uids []int) error {
	for _, uid := range uids {
		if err := ipRuleExec("add", uid, ifaceName); err != nil {
			return err
		}
	}
	return nil
}

// unrouteUIDs removes per-UID routing towards the TUN device. Variable for tests.
var unrouteUIDs = func(ifaceName string, uids []int) error {
	for _, uid := range uids {
		if err := ipRuleExec("del", uid, ifaceName); err != nil {
			return err
		}
	}
	return nil
}

// Backend is the TUN-based interception backend
type Backend struct {
	ifaceName string

	mu      sync.Mutex
	dev     device
	blocked rules.UIDSet
	done    chan struct{}
}

// New returns a stopped tunnel backend that will create a TUN device with
// the given interface name on start.
func New(ifaceName string) *Backend {
	return &Backend{
		ifaceName: ifaceName,
		blocked:   rules.NewUIDSet(),
	}
}

// Start opens the TUN device, routes the blocked UIDs into it and starts
// the discard loop. An empty blocked set is refused: a fresh TUN device
// with nothing routed at it intercepts everything once the OS falls back
// to it as a default route.
func (b *Backend) Start(blocked rules.UIDSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if blocked.Empty() {
		return firewall.ErrEmptyBlockedSet
	}
	if b.dev != nil {
		return errors.New("tunnel backend already started")
	}

	dev, err := openDevice(b.ifaceName)
	if err != nil {
		return err
	}
	if err := routeUIDs(dev.Name(), blocked.List()); err != nil {
		dev.Close()
		return err
	}

	b.dev = dev
	b.blocked = rules.NewUIDSet(blocked.List()...)
	b.done = make(chan struct{})
	go b.discardLoop(dev, b.done)

	log.Info().Msgf("Tunnel backend up on %s, blocking %d uids", dev.Name(), len(blocked))
	return nil
}

// discardLoop consumes intercepted packets. Reading and dropping them is
// the blocking mechanism.
func (b *Backend) discardLoop(dev device, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 4096)
	for {
		if _, err := dev.Read(buf); err != nil {
			log.Debug().Err(err).Msg("Tunnel read loop finished")
			return
		}
	}
}

// ApplyDiff re-routes UIDs without touching the device. Each route is
// recorded as soon as the kernel accepts it, so a failure midway leaves
// b.blocked matching the kernel and Stop tears everything down.
func (b *Backend) ApplyDiff(added, removed []int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return firewall.ErrBecameInactive
	}
	for _, uid := range added {
		if b.blocked.Contains(uid) {
			continue
		}
		if err := routeUIDs(b.dev.Name(), []int{uid}); err != nil {
			return err
		}
		b.blocked.Add(uid)
	}
	for _, uid := range removed {
		if !b.blocked.Contains(uid) {
			continue
		}
		if err := unrouteUIDs(b.dev.Name(), []int{uid}); err != nil {
			return err
		}
		delete(b.blocked, uid)
	}
	return nil
}

// Stop removes routing and closes the device, ending the discard loop
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return nil
	}
	if err := unrouteUIDs(b.dev.Name(), b.blocked.List()); err != nil {
		log.Warn().Err(err).Msg("Failed to remove uid routes, continuing teardown")
	}
	err := b.dev.Close()
	<-b.done
	b.dev = nil
	b.blocked = rules.NewUIDSet()
	return err
}

// IsActive reports whether the device is open and the discard loop is draining it
func (b *Backend) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dev == nil {
		return false
	}
	select {
	case <-b.done:
		// loop exited - device died underneath us
		return false
	default:
		return true
	}
}

// SupportsGranularControl reports per-network-class capability
func (b *Backend) SupportsGranularControl() bool {
	return firewall.Tunnel.SupportsGranularControl()
}

func ipRuleExec(action string, uid int, ifaceName string) error {
	uidRange := strconv.Itoa(uid) + "-" + strconv.Itoa(uid)
	return cmdutil.Exec("/sbin/ip", "rule", action, "uidrange", uidRange, "oif", ifaceName)
}

var _ firewall.Backend = (*Backend)(nil)
