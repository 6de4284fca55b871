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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppWithoutRuleFallsBackToGlobalPolicy(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001},
	}
	ctx := NetworkContext{Class: WiFi}

	blocked := Compute(BlockAllByDefault, apps, ctx, true)
	assert.True(t, blocked.Contains(10001))

	blocked = Compute(AllowAllByDefault, apps, ctx, true)
	assert.False(t, blocked.Contains(10001))
}

func TestExplicitRuleOverridesGlobalPolicy(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, WiFiBlocked: false, MobileBlocked: true},
	}

	blocked := Compute(BlockAllByDefault, apps, NetworkContext{Class: WiFi}, true)
	assert.False(t, blocked.Contains(10001))

	blocked = Compute(BlockAllByDefault, apps, NetworkContext{Class: Mobile}, true)
	assert.True(t, blocked.Contains(10001))
}

func TestNetworkSwitchFlipsDecisionWithSingleAppDiff(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, WiFiBlocked: false, MobileBlocked: true},
		{PackageName: "com.example.other", UID: 10002, HasRule: true, WiFiBlocked: true, MobileBlocked: true},
	}

	onWifi := Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi}, true)
	onMobile := Compute(AllowAllByDefault, apps, NetworkContext{Class: Mobile}, true)

	added, removed := onWifi.Diff(onMobile)
	assert.Equal(t, []int{10001}, added)
	assert.Empty(t, removed)
}

func TestRoamingHonorsMobileBlock(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, MobileBlocked: true},
	}

	blocked := Compute(AllowAllByDefault, apps, NetworkContext{Class: MobileRoaming}, true)
	assert.True(t, blocked.Contains(10001))
}

func TestScreenOffForcesBackgroundBlock(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, BackgroundBlocked: true},
	}

	blocked := Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi, ScreenOff: false}, true)
	assert.False(t, blocked.Contains(10001))

	blocked = Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi, ScreenOff: true}, true)
	assert.True(t, blocked.Contains(10001))
}

func TestNoNetworkBlocksNothing(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, WiFiBlocked: true, MobileBlocked: true, RoamingBlocked: true},
	}

	blocked := Compute(BlockAllByDefault, apps, NetworkContext{Class: NoNetwork}, true)
	assert.True(t, blocked.Empty())
}

func TestSharedUIDIsBlockedIfAnyAppUnderItIsBlocked(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.allowed", UID: 10001, HasRule: true},
		{PackageName: "com.example.blocked", UID: 10001, HasRule: true, WiFiBlocked: true},
	}

	blocked := Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi}, true)
	assert.True(t, blocked.Contains(10001))
}

func TestSharedUIDExemptionShortCircuitsUnion(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.blocked", UID: 10001, HasRule: true, WiFiBlocked: true},
		{PackageName: "com.example.vpn", UID: 10001, HasRule: true, VPNProvider: true},
	}

	blocked := Compute(BlockAllByDefault, apps, NetworkContext{Class: WiFi}, true)
	assert.False(t, blocked.Contains(10001))
}

func TestSystemUIDsAreNeverBlocked(t *testing.T) {
	apps := []AppRule{
		{PackageName: "android.system", UID: 500, HasRule: true, WiFiBlocked: true, MobileBlocked: true, RoamingBlocked: true},
	}

	blocked := Compute(BlockAllByDefault, apps, NetworkContext{Class: WiFi}, true)
	assert.True(t, blocked.Empty())
}

func TestCollapseFullyAllowedStaysAllowed(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true},
	}

	blocked := Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi}, false)
	assert.True(t, blocked.Empty())
}

func TestCollapsePartiallyBlockedBecomesFullyBlocked(t *testing.T) {
	oneOfThree := AppRule{PackageName: "a", UID: 10001, HasRule: true, WiFiBlocked: true}
	twoOfThree := AppRule{PackageName: "b", UID: 10002, HasRule: true, MobileBlocked: true, RoamingBlocked: true}
	allThree := AppRule{PackageName: "c", UID: 10003, HasRule: true, WiFiBlocked: true, MobileBlocked: true, RoamingBlocked: true}

	blocked := Compute(AllowAllByDefault, []AppRule{oneOfThree, twoOfThree, allThree}, NetworkContext{Class: WiFi}, false)
	assert.True(t, blocked.Contains(10001))
	assert.True(t, blocked.Contains(10002))
	assert.True(t, blocked.Contains(10003))
}

func TestCollapseIgnoresScreenState(t *testing.T) {
	apps := []AppRule{
		{PackageName: "com.example.app", UID: 10001, HasRule: true, BackgroundBlocked: true},
	}

	blocked := Compute(AllowAllByDefault, apps, NetworkContext{Class: WiFi, ScreenOff: true}, false)
	assert.True(t, blocked.Empty())
}

func TestComputeIsOrderIndependent(t *testing.T) {
	forward := []AppRule{
		{PackageName: "a", UID: 10001, HasRule: true, WiFiBlocked: true},
		{PackageName: "b", UID: 10001, HasRule: true, SystemCritical: true},
		{PackageName: "c", UID: 10002, HasRule: true, WiFiBlocked: true},
	}
	reversed := []AppRule{forward[2], forward[1], forward[0]}

	ctx := NetworkContext{Class: WiFi}
	assert.Equal(t, Compute(BlockAllByDefault, forward, ctx, true), Compute(BlockAllByDefault, reversed, ctx, true))
}
