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

package orchestrator

import (
	"sync"
	"time"
)

// probeInterval widens the liveness probe cadence as consecutive successes
// accumulate. A failure resets the success count, so the next monitor (if
// any) starts back at the tightest cadence.
func probeInterval(successes int) time.Duration {
	switch {
	case successes >= 30:
		return 30 * time.Second
	case successes >= 20:
		return 10 * time.Second
	case successes >= 10:
		return 5 * time.Second
	default:
		return time.Second
	}
}

// monitor is the adaptively-paced liveness loop of one active backend.
// Exactly one failure triggers exactly one onFailure call, then the loop
// exits - a replacement backend spins up its own monitor.
type monitor struct {
	check     func() bool
	onFailure func()
	interval  func(successes int) time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newMonitor(check func() bool, onFailure func()) *monitor {
	return &monitor{
		check:     check,
		onFailure: onFailure,
		interval:  probeInterval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the probe loop
func (m *monitor) Start() {
	go m.loop()
}

// Stop terminates the probe loop and waits for it to exit. Safe to call
// more than once, also after the loop already exited through a failure.
func (m *monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	<-m.done
}

func (m *monitor) loop() {
	successes := 0
	for {
		select {
		case <-m.stop:
			close(m.done)
			return
		case <-time.After(m.interval(successes)):
		}

		if m.check() {
			successes++
			continue
		}

		// done closes before onFailure so the orchestrator may Stop this
		// monitor from inside the failure handler without deadlocking
		close(m.done)
		m.onFailure()
		return
	}
}
