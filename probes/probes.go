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

// Package probes answers "is mechanism X currently usable" for each
// privilege source. Probes are rate-limited by a short cache so that
// planner re-runs do not hammer the underlying mechanisms.
package probes

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/broker"
	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/utils/cmdutil"
)

const (
	// DefaultTimeout bounds a single probe attempt
	DefaultTimeout = 3 * time.Second
	// DefaultCacheTTL is how long a probe result is trusted before re-probing
	DefaultCacheTTL = 5 * time.Second

	// minToggleKernelMajor is the oldest kernel exposing the per-app
	// network toggle the broker drives
	minToggleKernelMajor = 5
)

// ErrProbeTimeout indicates a probe did not answer within the timeout
var ErrProbeTimeout = errors.New("probe timed out")

// Report is an ephemeral snapshot of which backends are currently usable.
// It is produced here, consumed by the planner and never persisted.
type Report struct {
	Root            bool
	Broker          bool
	BrokerMode      broker.Mode
	OSToggle        bool
	TunnelPermitted bool
}

// Usable reports whether the given backend kind can run right now
func (r Report) Usable(kind firewall.Kind) bool {
	switch kind {
	case firewall.UIDFilter:
		return r.Root
	case firewall.AppToggle:
		return r.Broker && r.OSToggle
	case firewall.Tunnel:
		return r.TunnelPermitted
	}
	return false
}

// rootCheckExec verifies a root-equivalent shell is usable. Variable for tests.
var rootCheckExec = func() error {
	return cmdutil.SudoExec("-n", "true")
}

// kernelVersionExec returns the running kernel release. Variable for tests.
var kernelVersionExec = func() (string, error) {
	return cmdutil.ExecOutput("uname", "-r")
}

// brokerPinger is the slice of the broker client the prober depends on
type brokerPinger interface {
	Ping() error
	Mode() (broker.Mode, error)
}

// Prober produces availability reports with short-term caching
type Prober struct {
	broker          brokerPinger
	tunnelPermitted func() bool
	timeout         time.Duration
	cacheTTL        time.Duration

	mu       sync.Mutex
	cached   *Report
	cachedAt time.Time

	osToggle     bool
	osToggleOnce sync.Once
}

// NewProber creates a prober over the given broker client. tunnelPermitted
// reports the one-time user grant for the tunnel device.
func NewProber(brokerClient brokerPinger, tunnelPermitted func() bool) *Prober {
	return &Prober{
		broker:          brokerClient,
		tunnelPermitted: tunnelPermitted,
		timeout:         DefaultTimeout,
		cacheTTL:        DefaultCacheTTL,
	}
}

// Report probes all privilege sources, reusing a recent result when available
func (p *Prober) Report() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && time.Since(p.cachedAt) < p.cacheTTL {
		report := *p.cached
		report.TunnelPermitted = p.tunnelPermitted()
		return report
	}

	report := Report{
		Root:            p.probeRoot(),
		TunnelPermitted: p.tunnelPermitted(),
		OSToggle:        p.probeOSGate(),
	}
	report.Broker, report.BrokerMode = p.probeBroker()

	p.cached = &report
	p.cachedAt = time.Now()
	return report
}

// Invalidate drops the cached report so the next Report re-probes everything.
// Called when an external signal suggests privileges changed.
func (p *Prober) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

func (p *Prober) probeRoot() bool {
	err := p.bounded(rootCheckExec)
	if err != nil {
		log.Debug().Err(err).Msg("Root probe negative")
		return false
	}
	return true
}

func (p *Prober) probeBroker() (bool, broker.Mode) {
	var mode broker.Mode
	err := p.bounded(func() error {
		if err := p.broker.Ping(); err != nil {
			return err
		}
		var err error
		mode, err = p.broker.Mode()
		return err
	})
	if err != nil {
		log.Debug().Err(err).Msg("Broker probe negative")
		return false, ""
	}
	return true, mode
}

// probeOSGate checks the kernel version gate once; the kernel does not
// change while the process lives.
func (p *Prober) probeOSGate() bool {
	p.osToggleOnce.Do(func() {
		release, err := kernelVersionExec()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read kernel release, app-toggle disabled")
			return
		}
		p.osToggle = kernelSupportsToggle(release)
	})
	return p.osToggle
}

// bounded runs fn, treating timeout as failure instead of waiting indefinitely
func (p *Prober) bounded(fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(p.timeout):
		return ErrProbeTimeout
	}
}

func kernelSupportsToggle(release string) bool {
	parts := strings.SplitN(strings.TrimSpace(release), ".", 2)
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	return major >= minToggleKernelMajor
}
