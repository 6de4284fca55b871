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

// Package uidfilter implements the kernel packet-filter backend: per-UID
// iptables REJECT rules executed through a root-equivalent shell.
package uidfilter

import (
	"bufio"
	"bytes"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/rules"
)

const (
	outputChain = "OUTPUT"
	dropChain   = "NETFENCE_UID_DROP"

	addChain         = "-N"
	appendRule       = "-A"
	listRules        = "-S"
	removeRule       = "-D"
	removeChainRules = "-F"
	removeChain      = "-X"

	jumpTo   = "-j"
	module   = "-m"
	owner    = "owner"
	uidOwner = "--uid-owner"

	reject = "REJECT"

	version = "--version"
)

var iptablesExec = func(args ...string) ([]string, error) {
	args = append([]string{"/sbin/iptables"}, args...)
	log.Debug().Msgf("[cmd] %v", args)
	output, err := exec.Command("sudo", args...).CombinedOutput()
	if err != nil {
		log.Debug().Err(err).Msgf("[cmd error] %v output: %v", args, string(output))
		return nil, errors.Wrap(err, "iptables cmd error")
	}
	outputScanner := bufio.NewScanner(bytes.NewBuffer(output))
	var lines []string
	for outputScanner.Scan() {
		lines = append(lines, outputScanner.Text())
	}
	return lines, outputScanner.Err()
}

func checkVersion() error {
	output, err := iptablesExec(version)
	if err != nil {
		return err
	}
	for _, line := range output {
		log.Info().Msg("[version check] " + line)
	}
	return nil
}

func cleanupStaleRules() error {
	chainRules, err := iptablesExec(listRules, outputChain)
	if err != nil {
		return err
	}
	for _, rule := range chainRules {
		// detect leftover references in OUTPUT like -j NETFENCE_UID_DROP
		if strings.HasSuffix(rule, dropChain) {
			deleteRule := strings.Replace(rule, appendRule, removeRule, 1)
			deleteRuleArgs := strings.Split(deleteRule, " ")
			if _, err := iptablesExec(deleteRuleArgs...); err != nil {
				return err
			}
		}
	}

	if _, err := iptablesExec(listRules, dropChain); err != nil {
		// error means no such chain - nothing left over
		return nil
	}
	if _, err := iptablesExec(removeChainRules, dropChain); err != nil {
		return err
	}
	_, err = iptablesExec(removeChain, dropChain)
	return err
}

func uidRuleArgs(action string, uid int) []string {
	return []string{action, dropChain, module, owner, uidOwner, strconv.Itoa(uid), jumpTo, reject}
}

// Backend is the iptables-based packet-filter backend
type Backend struct {
	mu      sync.Mutex
	active  bool
	blocked rules.UIDSet
}

// New returns a stopped packet-filter backend
func New() *Backend {
	return &Backend{blocked: rules.NewUIDSet()}
}

// Start prepares the drop chain, fills it with the initial blocked set and
// wires it into OUTPUT.
func (b *Backend) Start(blocked rules.UIDSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := checkVersion(); err != nil {
		return errors.Wrap(err, "iptables not usable")
	}
	if err := cleanupStaleRules(); err != nil {
		return err
	}
	if _, err := iptablesExec(addChain, dropChain); err != nil {
		return err
	}
	for _, uid := range blocked.List() {
		if _, err := iptablesExec(uidRuleArgs(appendRule, uid)...); err != nil {
			return err
		}
	}
	if _, err := iptablesExec(appendRule, outputChain, jumpTo, dropChain); err != nil {
		return err
	}

	b.blocked = rules.NewUIDSet(blocked.List()...)
	b.active = true
	return nil
}

// ApplyDiff adds and removes per-UID rules. Already-applied entries are
// skipped, which makes a repeated identical diff a no-op.
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
		if _, err := iptablesExec(uidRuleArgs(appendRule, uid)...); err != nil {
			return err
		}
		b.blocked.Add(uid)
	}
	for _, uid := range removed {
		if !b.blocked.Contains(uid) {
			continue
		}
		if _, err := iptablesExec(uidRuleArgs(removeRule, uid)...); err != nil {
			return err
		}
		delete(b.blocked, uid)
	}
	return nil
}

// Stop unwires and removes the drop chain
func (b *Backend) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := iptablesExec(removeRule, outputChain, jumpTo, dropChain); err != nil {
		log.Warn().Err(err).Msg("Failed to unwire the drop chain, continuing teardown")
	}
	if _, err := iptablesExec(removeChainRules, dropChain); err != nil {
		return err
	}
	if _, err := iptablesExec(removeChain, dropChain); err != nil {
		return err
	}
	b.active = false
	b.blocked = rules.NewUIDSet()
	return nil
}

// IsActive verifies that the drop chain is wired into OUTPUT. It asks the
// kernel instead of trusting local state: root can disappear at any moment,
// and the chain of a previous process outlives it. A fresh backend therefore
// reports active when residual rules are still live.
func (b *Backend) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	chainRules, err := iptablesExec(listRules, outputChain)
	if err != nil {
		return false
	}
	for _, rule := range chainRules {
		if strings.HasSuffix(rule, dropChain) {
			return true
		}
	}
	return false
}

// SupportsGranularControl reports per-network-class capability
func (b *Backend) SupportsGranularControl() bool {
	return firewall.UIDFilter.SupportsGranularControl()
}

var _ firewall.Backend = (*Backend)(nil)
