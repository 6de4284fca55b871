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

package rules

// Compute turns policy and context into the set of blocked UIDs for a
// backend of the given capability. It is a pure function: same inputs,
// same output, no side effects.
//
// Granular backends get per-network-class decisions. All-or-nothing
// backends get the lossy collapse of the three network flags: any
// explicitly blocked network makes the app fully blocked.
func Compute(policy GlobalPolicy, apps []AppRule, ctx NetworkContext, granular bool) UIDSet {
	blocked := NewUIDSet()
	for uid, group := range groupByUID(apps) {
		if uidExempt(group) {
			continue
		}
		// Union over apps sharing the UID: the kernel cannot tell shared-UID
		// apps apart, so one blocked app blocks the whole UID.
		for _, r := range group {
			if appBlocked(policy, r, ctx, granular) {
				blocked.Add(uid)
				break
			}
		}
	}
	return blocked
}

func appBlocked(policy GlobalPolicy, r AppRule, ctx NetworkContext, granular bool) bool {
	if !granular {
		return collapseBlocked(policy, r)
	}
	if ctx.Class == NoNetwork {
		return false
	}
	blocked := policy == BlockAllByDefault
	if r.HasRule {
		blocked = r.BlockedOn(ctx.Class)
	}
	if ctx.ScreenOff && r.HasRule && r.BackgroundBlocked {
		blocked = true
	}
	return blocked
}

// collapseBlocked is the lossy all-or-nothing conversion: one or more
// blocked network classes coerce the app to fully blocked. Screen state is
// invisible to all-or-nothing backends, so backgroundBlocked is ignored.
func collapseBlocked(policy GlobalPolicy, r AppRule) bool {
	if !r.HasRule {
		return policy == BlockAllByDefault
	}
	return r.WiFiBlocked || r.MobileBlocked || r.RoamingBlocked
}

func groupByUID(apps []AppRule) map[int][]AppRule {
	groups := make(map[int][]AppRule)
	for _, r := range apps {
		groups[r.UID] = append(groups[r.UID], r)
	}
	return groups
}

// uidExempt short-circuits the union: a single exempt app under a UID
// unconditionally unblocks the whole UID.
func uidExempt(group []AppRule) bool {
	for _, r := range group {
		if r.Exempt() {
			return true
		}
	}
	return false
}
