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

	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/eventbus"
)

// Notifier turns orchestrator events into user-facing alerts. Backend
// switches are silent, a down firewall alerts persistently until the
// condition clears, waiting-for-privilege is dismissible.
type Notifier struct {
	mu         sync.Mutex
	downReason string
}

// NewNotifier creates the alert dispatcher
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Subscribe wires the notifier to the orchestrator's event topics
func (n *Notifier) Subscribe(bus eventbus.Subscriber) error {
	if err := bus.Subscribe(AppTopicBackendSwitched, n.onSwitched); err != nil {
		return err
	}
	if err := bus.Subscribe(AppTopicFirewallDown, n.onDown); err != nil {
		return err
	}
	if err := bus.Subscribe(AppTopicWaitingPrivilege, n.onWaiting); err != nil {
		return err
	}
	return bus.Subscribe(AppTopicFirewallState, n.onState)
}

// DownReason returns the reason of the active firewall-down alert, empty
// when the firewall is fine.
func (n *Notifier) DownReason() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.downReason
}

func (n *Notifier) onSwitched(event AppEventBackendSwitched) {
	log.Info().Msgf("Firewall backend switched: %s -> %s", event.From, event.To)
}

func (n *Notifier) onDown(event AppEventFirewallDown) {
	n.mu.Lock()
	n.downReason = event.Reason
	n.mu.Unlock()
	log.Error().Msgf("FIREWALL IS DOWN: %s", event.Reason)
}

func (n *Notifier) onWaiting(event AppEventWaitingPrivilege) {
	log.Info().Msgf("Waiting for privilege to run the %s backend, next check in %s", event.Wanted, event.RetryIn)
}

func (n *Notifier) onState(event AppEventFirewallState) {
	if event.Current.Status == Degraded {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.downReason != "" {
		log.Info().Msgf("Firewall recovered: %s", event.Current)
		n.downReason = ""
	}
}
