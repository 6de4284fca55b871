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
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/probes"
)

// ModeAuto lets the planner pick the best usable backend. Any other mode
// value is a forced backend kind.
const ModeAuto = "auto"

// ErrNoViableBackend means not even the tunnel can run. Not reachable
// while the tunnel permission is granted, modeled defensively.
var ErrNoViableBackend = errors.New("no viable firewall backend")

// autoOrder is the AUTO mode priority: kernel packet filtering beats the
// all-or-nothing app toggle, which beats userspace tunnel interception.
var autoOrder = []firewall.Kind{firewall.UIDFilter, firewall.AppToggle, firewall.Tunnel}

// plan deterministically picks exactly one backend kind. A forced mode is
// honored only if the availability report confirms it; otherwise the
// effective mode silently degrades to AUTO for this planning cycle. banned
// marks a kind that just failed its health check and must not be retried
// until a fresh availability report clears it.
func plan(mode string, report probes.Report, banned firewall.Kind) (firewall.Kind, error) {
	usable := func(kind firewall.Kind) bool {
		return kind != banned && report.Usable(kind)
	}

	if mode != ModeAuto {
		forced, ok := firewall.ParseKind(mode)
		if !ok {
			log.Warn().Msgf("Unknown firewall mode %q, using auto", mode)
		} else if usable(forced) {
			return forced, nil
		} else {
			log.Warn().Msgf("Forced backend %q is unavailable, degrading to auto", forced)
		}
	}

	for _, kind := range autoOrder {
		if usable(kind) {
			return kind, nil
		}
	}
	return firewall.Kind(""), ErrNoViableBackend
}
