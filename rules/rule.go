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

// Package rules contains the per-application policy model and the pure
// computation engine turning policy plus network context into concrete
// per-UID block decisions.
package rules

// GlobalPolicy determines the fallback decision for apps with no explicit rule
type GlobalPolicy string

const (
	// BlockAllByDefault blocks apps that have no explicit rule
	BlockAllByDefault = GlobalPolicy("block")
	// AllowAllByDefault allows apps that have no explicit rule
	AllowAllByDefault = GlobalPolicy("allow")
)

// ParseGlobalPolicy maps a config value to a GlobalPolicy, defaulting to block-all
func ParseGlobalPolicy(value string) GlobalPolicy {
	if value == string(AllowAllByDefault) {
		return AllowAllByDefault
	}
	return BlockAllByDefault
}

// NetworkClass represents the class of the currently active network
type NetworkClass string

const (
	// WiFi means the active network is a wifi network
	WiFi = NetworkClass("wifi")
	// Mobile means the active network is a home cellular network
	Mobile = NetworkClass("mobile")
	// MobileRoaming means the active network is a roaming cellular network
	MobileRoaming = NetworkClass("roaming")
	// NoNetwork means no network is active
	NoNetwork = NetworkClass("none")
)

// NetworkContext is the transient network and screen state consumed by the engine
type NetworkContext struct {
	Class     NetworkClass
	ScreenOff bool
}

// AppRule identifies one installed application and carries its block flags.
// HasRule distinguishes an explicitly configured app from one that merely
// exists in the inventory and falls back to the global policy.
type AppRule struct {
	PackageName string `storm:"id" json:"package_name"`
	UID         int    `storm:"index" json:"uid"`

	HasRule           bool `json:"has_rule"`
	WiFiBlocked       bool `json:"wifi_blocked"`
	MobileBlocked     bool `json:"mobile_blocked"`
	RoamingBlocked    bool `json:"roaming_blocked"`
	BackgroundBlocked bool `json:"background_blocked"`

	SystemCritical bool `json:"system_critical"`
	VPNProvider    bool `json:"vpn_provider"`
}

// Normalize enforces the dependent-flag invariant: roaming is a sub-state of
// mobile and is never independently blocked. Returns true when a correction
// was applied and the rule should be written back to the store.
func (r *AppRule) Normalize() bool {
	if r.RoamingBlocked && !r.MobileBlocked {
		r.MobileBlocked = true
		return true
	}
	return false
}

// IsFullyBlocked reports whether the app is blocked on every network class
func (r AppRule) IsFullyBlocked() bool {
	return r.WiFiBlocked && r.MobileBlocked && r.RoamingBlocked
}

// IsFullyAllowed reports whether the app is allowed on every network class
func (r AppRule) IsFullyAllowed() bool {
	return !r.WiFiBlocked && !r.MobileBlocked && !r.RoamingBlocked
}

// IsPartiallyBlocked reports whether the app is blocked on some but not all network classes
func (r AppRule) IsPartiallyBlocked() bool {
	return !r.IsFullyBlocked() && !r.IsFullyAllowed()
}

// BlockedOn reports the explicit decision of this rule for the given network class.
// Roaming honors the mobile flag as well since roaming is a mobile sub-state.
func (r AppRule) BlockedOn(class NetworkClass) bool {
	switch class {
	case WiFi:
		return r.WiFiBlocked
	case Mobile:
		return r.MobileBlocked
	case MobileRoaming:
		return r.MobileBlocked || r.RoamingBlocked
	default:
		return false
	}
}

// Exempt reports whether the app must never be blocked. System UIDs and
// VPN-providing apps are exempted to avoid lockout and bypass vulnerabilities.
func (r AppRule) Exempt() bool {
	return r.UID < firstApplicationUID || r.SystemCritical || r.VPNProvider
}

// firstApplicationUID is the lowest UID assigned to regular applications;
// anything below belongs to the system.
const firstApplicationUID = 1000
