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
	"fmt"
	"time"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/rules"
)

// Status is the orchestrator's lifecycle phase
type Status string

const (
	// Stopped - no backend running, none wanted
	Stopped = Status("Stopped")
	// Starting - a backend was asked to start, activity not yet confirmed
	Starting = Status("Starting")
	// Running - exactly one backend confirmed active
	Running = Status("Running")
	// Switching - replacement backend starting while the old one still runs
	Switching = Status("Switching")
	// Degraded - firewall wanted but no backend can run. The one state in
	// which the system is knowingly unprotected.
	Degraded = Status("Error")
)

// State is the orchestrator's state machine value. Exactly one instance
// exists process-wide, owned and mutated only by the Orchestrator.
type State struct {
	Status Status        `json:"status"`
	Kind   firewall.Kind `json:"backend,omitempty"`

	// Switching only
	From firewall.Kind `json:"from,omitempty"`
	To   firewall.Kind `json:"to,omitempty"`

	// Error only
	Reason       string `json:"reason,omitempty"`
	FirewallDown bool   `json:"firewallDown,omitempty"`
}

func (s State) String() string {
	switch s.Status {
	case Switching:
		return fmt.Sprintf("Switching(%s -> %s)", s.From, s.To)
	case Degraded:
		return fmt.Sprintf("Error(%q, last %s)", s.Reason, s.Kind)
	case Starting, Running:
		return fmt.Sprintf("%s(%s)", s.Status, s.Kind)
	}
	return string(s.Status)
}

const (
	// AppTopicFirewallState reports every state machine transition
	AppTopicFirewallState = "FirewallState"
	// AppTopicBackendSwitched reports completed backend switches. Silent -
	// rendered as an informational badge at most.
	AppTopicBackendSwitched = "BackendSwitched"
	// AppTopicFirewallDown reports that the firewall is wanted but not
	// running. Persistent, high priority.
	AppTopicFirewallDown = "FirewallDown"
	// AppTopicWaitingPrivilege reports that a better backend exists but its
	// privilege source is currently unavailable. Low priority, dismissible.
	AppTopicWaitingPrivilege = "WaitingPrivilege"
	// AppTopicNetworkContext is where the external network/screen observer
	// pushes context changes
	AppTopicNetworkContext = "NetworkContext"
)

// AppEventFirewallState is emitted on AppTopicFirewallState
type AppEventFirewallState struct {
	TransitionID string
	Previous     State
	Current      State
}

// AppEventBackendSwitched is emitted on AppTopicBackendSwitched
type AppEventBackendSwitched struct {
	From firewall.Kind
	To   firewall.Kind
}

// AppEventFirewallDown is emitted on AppTopicFirewallDown
type AppEventFirewallDown struct {
	Reason string
}

// AppEventWaitingPrivilege is emitted on AppTopicWaitingPrivilege. RetryIn
// is the delay until availability is re-probed, the soonest the wanted
// backend can take over.
type AppEventWaitingPrivilege struct {
	Wanted  firewall.Kind
	RetryIn time.Duration
}

// AppEventNetworkContext is the payload the network/screen observer
// publishes on AppTopicNetworkContext
type AppEventNetworkContext struct {
	Context rules.NetworkContext
}
