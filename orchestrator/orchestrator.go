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

// Package orchestrator owns the firewall state machine. It plans which
// backend should run, executes the atomic switch protocol, keeps the
// active backend's blocked set in sync with the rule store and network
// context, and supervises backend liveness.
package orchestrator

import (
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/config"
	"github.com/netfence/netfence/eventbus"
	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/probes"
	"github.com/netfence/netfence/ruledb"
	"github.com/netfence/netfence/rules"
)

const reasonPermissionNotGranted = "privilege lost, tunnel permission not granted"

// ruleSource is the slice of the rule store the orchestrator consumes
type ruleSource interface {
	ListRules() ([]rules.AppRule, error)
	GlobalPolicy() rules.GlobalPolicy
	ShouldRun() bool
	SetShouldRun(should bool) error
	LastBackend() (firewall.Kind, bool)
	SetLastBackend(kind firewall.Kind) error
}

// availabilityProber produces backend availability snapshots
type availabilityProber interface {
	Report() probes.Report
	Invalidate()
}

// backendFactory creates fresh backend instances by kind
type backendFactory interface {
	CreateBackend(kind firewall.Kind) (firewall.Backend, error)
}

// Orchestrator is the single owner of the firewall state. All transitions
// run under one mutex - the health monitor, bus subscriptions and explicit
// user commands funnel into the same serialized handler and never
// interleave.
type Orchestrator struct {
	store    ruleSource
	prober   availabilityProber
	registry backendFactory
	bus      eventbus.EventBus

	startTimeout     time.Duration
	confirmPoll      time.Duration
	recoveryInterval time.Duration

	mu           sync.Mutex
	mode         string
	state        State
	active       firewall.Backend
	activeKind   firewall.Kind
	current      rules.UIDSet
	mon          *monitor
	recoveryStop chan struct{}
	apps         []rules.AppRule
	appsLoaded   bool
	netCtx       rules.NetworkContext
}

// NewOrchestrator creates the orchestrator in the Stopped state
func NewOrchestrator(store ruleSource, prober availabilityProber, registry backendFactory, bus eventbus.EventBus, mode string) *Orchestrator {
	return &Orchestrator{
		store:            store,
		prober:           prober,
		registry:         registry,
		bus:              bus,
		startTimeout:     2 * time.Second,
		confirmPoll:      100 * time.Millisecond,
		recoveryInterval: 5 * time.Second,
		mode:             mode,
		state:            State{Status: Stopped},
		current:          rules.NewUIDSet(),
	}
}

// Subscribe wires the orchestrator to its push inputs: rule snapshots,
// network context changes and the tunnel permission grant.
func (o *Orchestrator) Subscribe(bus eventbus.Subscriber) error {
	if err := bus.Subscribe(ruledb.AppTopicRulesUpdated, o.onRulesUpdated); err != nil {
		return err
	}
	if err := bus.Subscribe(AppTopicNetworkContext, o.onNetworkContext); err != nil {
		return err
	}
	return bus.Subscribe(config.Topic(config.FlagTunnelPermitted.Name), o.onTunnelPermissionChanged)
}

// Status returns the current state machine value
func (o *Orchestrator) Status() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Mode returns the requested backend selection mode
func (o *Orchestrator) Mode() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// Enable starts the firewall, persisting the intent so a process restart
// reconciles back into the running state. From the error state this is the
// user-initiated recovery attempt.
func (o *Orchestrator) Enable() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state.Status {
	case Starting, Running, Switching:
		return nil
	}
	if err := o.store.SetShouldRun(true); err != nil {
		log.Warn().Err(err).Msg("Failed to persist firewall intent")
	}
	return o.startFirewallLocked()
}

// Disable stops the firewall and persists the intent
func (o *Orchestrator) Disable() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.store.SetShouldRun(false); err != nil {
		log.Warn().Err(err).Msg("Failed to persist firewall intent")
	}
	if o.state.Status == Stopped {
		return nil
	}

	o.stopRecoveryLocked()
	o.stopMonitorLocked()
	var err error
	if o.active != nil {
		err = o.active.Stop()
		o.active = nil
	}
	o.current = rules.NewUIDSet()
	o.setStateLocked(State{Status: Stopped})
	return errors.Wrap(err, "failed to stop active backend")
}

// SetMode changes the backend selection mode and, if the firewall is
// running, replans and switches when the plan changes.
func (o *Orchestrator) SetMode(mode string) error {
	if mode != ModeAuto {
		if _, ok := firewall.ParseKind(mode); !ok {
			return errors.Errorf("unknown firewall mode %q", mode)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.mode = mode

	if o.state.Status != Running {
		return nil
	}
	o.prober.Invalidate()
	next, err := o.planLocked("")
	if err != nil {
		log.Warn().Err(err).Msg("No viable backend for new mode, keeping current backend")
		return nil
	}
	if next == o.activeKind {
		return nil
	}
	return o.switchToLocked(next)
}

// Reconcile compares the persisted intent against actual backend liveness
// on process start and resolves the four possible combinations.
func (o *Orchestrator) Reconcile() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	should := o.store.ShouldRun()
	residual, residualKind := o.findResidualLocked()

	switch {
	case should && residual != nil:
		log.Info().Msgf("Found live %s rules from a previous run, restarting cleanly", residualKind)
		if err := residual.Stop(); err != nil {
			log.Warn().Err(err).Msgf("Failed to tear down residual %s rules", residualKind)
		}
		return o.startFirewallLocked()
	case should:
		log.Info().Msg("Firewall was enabled before restart, starting")
		return o.startFirewallLocked()
	case residual != nil:
		log.Info().Msgf("Firewall is disabled but %s rules are live, tearing down", residualKind)
		return residual.Stop()
	}
	return nil
}

// findResidualLocked checks whether the last known backend survived the
// previous process. Only kernel-side mechanisms can - a dead process takes
// its tunnel device with it.
func (o *Orchestrator) findResidualLocked() (firewall.Backend, firewall.Kind) {
	last, ok := o.store.LastBackend()
	if !ok {
		return nil, ""
	}
	backend, err := o.registry.CreateBackend(last)
	if err != nil || !backend.IsActive() {
		return nil, ""
	}
	return backend, last
}

// startFirewallLocked plans a backend and runs Stopped/Error -> Starting ->
// Running. On a plan failure the state becomes the user-visible error.
func (o *Orchestrator) startFirewallLocked() error {
	o.stopRecoveryLocked()

	kind, err := o.planLocked("")
	if err != nil {
		o.enterDegradedLocked(reasonPermissionNotGranted, o.state.Kind)
		return err
	}
	return o.startBackendLocked(kind)
}

func (o *Orchestrator) startBackendLocked(kind firewall.Kind) error {
	o.setStateLocked(State{Status: Starting, Kind: kind})

	blocked := o.computeLocked(kind)
	if blocked.Empty() {
		// starting a backend with nothing to block is forbidden (an
		// empty-initialized tunnel inverts intent), so the start is
		// deferred until the blocked set becomes non-empty
		log.Info().Msgf("Nothing to block, deferring %s start", kind)
		o.adoptLocked(kind, nil, blocked)
		return nil
	}

	backend, err := o.registry.CreateBackend(kind)
	if err == nil {
		err = backend.Start(blocked)
	}
	if err != nil {
		err = errors.Wrapf(firewall.ErrStartFailed, "%s: %v", kind, err)
		o.enterDegradedLocked(err.Error(), kind)
		return err
	}
	if !o.awaitActive(backend) {
		if stopErr := backend.Stop(); stopErr != nil {
			log.Warn().Err(stopErr).Msgf("Failed to stop unconfirmed %s backend", kind)
		}
		err = errors.Wrapf(firewall.ErrStartFailed, "%s did not confirm active in %s", kind, o.startTimeout)
		o.enterDegradedLocked(err.Error(), kind)
		return err
	}

	o.adoptLocked(kind, backend, blocked)
	return nil
}

// switchToLocked executes the atomic switch protocol: compute, start the
// replacement, confirm it active, only then stop the old backend. No step
// ever stops a working backend before its replacement is confirmed live.
func (o *Orchestrator) switchToLocked(to firewall.Kind) error {
	from := o.activeKind
	old := o.active
	o.setStateLocked(State{Status: Switching, From: from, To: to})

	blocked := o.computeLocked(to)
	if blocked.Empty() {
		log.Info().Msgf("Nothing to block on %s, deferring its start", to)
		o.stopMonitorLocked()
		if old != nil {
			if err := old.Stop(); err != nil {
				log.Warn().Err(err).Msgf("Failed to stop %s backend", from)
			}
		}
		o.adoptLocked(to, nil, blocked)
		return nil
	}

	next, err := o.registry.CreateBackend(to)
	if err == nil {
		err = next.Start(blocked)
	}
	if err != nil {
		return o.abortSwitchLocked(from, old, errors.Wrapf(firewall.ErrStartFailed, "%s: %v", to, err))
	}
	if !o.awaitActive(next) {
		if stopErr := next.Stop(); stopErr != nil {
			log.Warn().Err(stopErr).Msgf("Failed to stop unconfirmed %s backend", to)
		}
		return o.abortSwitchLocked(from, old, errors.Wrapf(firewall.ErrStartFailed, "%s did not confirm active in %s", to, o.startTimeout))
	}

	// replacement confirmed, the old backend may go now
	o.stopMonitorLocked()
	if old != nil {
		if err := old.Stop(); err != nil {
			log.Warn().Err(err).Msgf("Failed to stop replaced %s backend", from)
		}
	}
	o.adoptLocked(to, next, blocked)
	o.bus.Publish(AppTopicBackendSwitched, AppEventBackendSwitched{From: from, To: to})
	return nil
}

// abortSwitchLocked handles a failed replacement start. If the old backend
// still protects, the switch simply aborts and the state returns to
// Running on it. Only when the old backend is gone too does the state
// degrade.
func (o *Orchestrator) abortSwitchLocked(from firewall.Kind, old firewall.Backend, cause error) error {
	if old != nil && old.IsActive() {
		log.Warn().Err(cause).Msgf("Switch aborted, keeping %s running", from)
		o.setStateLocked(State{Status: Running, Kind: from})
		return cause
	}
	o.active = nil
	o.enterDegradedLocked(cause.Error(), from)
	return cause
}

// adoptLocked installs the confirmed backend (nil when the start is
// deferred on an empty blocked set) and transitions to Running.
func (o *Orchestrator) adoptLocked(kind firewall.Kind, backend firewall.Backend, blocked rules.UIDSet) {
	o.active = backend
	o.activeKind = kind
	o.current = blocked
	if err := o.store.SetLastBackend(kind); err != nil {
		log.Warn().Err(err).Msg("Failed to persist last backend kind")
	}
	o.setStateLocked(State{Status: Running, Kind: kind})
	if backend != nil {
		o.startMonitorLocked(kind, backend)
	}
}

func (o *Orchestrator) startMonitorLocked(kind firewall.Kind, backend firewall.Backend) {
	o.mon = newMonitor(backend.IsActive, func() {
		o.handleBackendFailure(kind, backend)
	})
	o.mon.Start()
}

func (o *Orchestrator) stopMonitorLocked() {
	if o.mon == nil {
		return
	}
	o.mon.Stop()
	o.mon = nil
}

// handleBackendFailure is the health monitor's failure callback. The
// failed backend is banned for this planning cycle - it is never retried
// until a fresh availability report clears it.
func (o *Orchestrator) handleBackendFailure(kind firewall.Kind, failed firewall.Backend) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Status != Running || o.active != failed {
		return
	}
	log.Warn().Msgf("Backend %s became inactive: %v", kind, firewall.ErrBecameInactive)
	o.mon = nil
	o.prober.Invalidate()

	next, err := o.planLocked(kind)
	if err != nil {
		if stopErr := failed.Stop(); stopErr != nil {
			log.Debug().Err(stopErr).Msgf("Cleanup of failed %s backend", kind)
		}
		o.active = nil
		o.enterDegradedLocked(reasonPermissionNotGranted, kind)
		return
	}
	if err := o.switchToLocked(next); err != nil {
		log.Error().Err(err).Msgf("Fallback switch %s -> %s failed", kind, next)
	}
}

// planLocked runs the planner on a fresh availability report and announces
// when a forced mode could not be honored.
func (o *Orchestrator) planLocked(banned firewall.Kind) (firewall.Kind, error) {
	report := o.prober.Report()
	kind, err := plan(o.mode, report, banned)
	if err != nil {
		return kind, err
	}
	if o.mode != ModeAuto && string(kind) != o.mode {
		if forced, ok := firewall.ParseKind(o.mode); ok {
			o.bus.Publish(AppTopicWaitingPrivilege, AppEventWaitingPrivilege{Wanted: forced, RetryIn: o.recoveryInterval})
		}
	}
	return kind, nil
}

func (o *Orchestrator) enterDegradedLocked(reason string, last firewall.Kind) {
	o.setStateLocked(State{Status: Degraded, Kind: last, Reason: reason, FirewallDown: true})
	o.bus.Publish(AppTopicFirewallDown, AppEventFirewallDown{Reason: reason})
	o.startRecoveryLocked()
}

// startRecoveryLocked polls availability while in the error state, so a
// restored privilege or a granted tunnel permission brings the firewall
// back without user action.
func (o *Orchestrator) startRecoveryLocked() {
	o.stopRecoveryLocked()
	stop := make(chan struct{})
	o.recoveryStop = stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(o.recoveryInterval):
			}
			o.prober.Invalidate()
			report := o.prober.Report()

			o.mu.Lock()
			if o.state.Status != Degraded {
				o.mu.Unlock()
				return
			}
			if _, err := plan(o.mode, report, ""); err != nil {
				o.mu.Unlock()
				continue
			}
			log.Info().Msg("A firewall backend became available again, recovering")
			if err := o.startFirewallLocked(); err != nil {
				log.Warn().Err(err).Msg("Recovery attempt failed")
			}
			o.mu.Unlock()
			return
		}
	}()
}

func (o *Orchestrator) stopRecoveryLocked() {
	if o.recoveryStop != nil {
		close(o.recoveryStop)
		o.recoveryStop = nil
	}
}

// awaitActive polls the backend until it confirms active or the bounded
// timeout elapses. A timeout is a failure, never an indefinite wait.
func (o *Orchestrator) awaitActive(backend firewall.Backend) bool {
	deadline := time.Now().Add(o.startTimeout)
	for {
		if backend.IsActive() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(o.confirmPoll)
	}
}

// computeLocked runs the rule engine for the given backend's capability
func (o *Orchestrator) computeLocked(kind firewall.Kind) rules.UIDSet {
	if !o.appsLoaded {
		apps, err := o.store.ListRules()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load rules, computing with none")
		} else {
			o.apps = apps
			o.appsLoaded = true
		}
	}
	return rules.Compute(o.store.GlobalPolicy(), o.apps, o.netCtx, kind.SupportsGranularControl())
}

// recomputeLocked re-runs the rule engine and applies the diff to the
// active backend. A deferred backend starts here once the blocked set
// becomes non-empty.
func (o *Orchestrator) recomputeLocked() {
	if o.state.Status != Running {
		return
	}

	blocked := o.computeLocked(o.activeKind)
	if o.active == nil {
		if blocked.Empty() {
			return
		}
		if err := o.startBackendLocked(o.activeKind); err != nil {
			log.Error().Err(err).Msgf("Deferred %s start failed", o.activeKind)
		}
		return
	}

	added, removed := o.current.Diff(blocked)
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	if err := o.active.ApplyDiff(added, removed); err != nil {
		// leave o.current untouched, the health monitor deals with a
		// backend that stopped taking rules
		log.Error().Err(err).Msgf("Failed to apply rule diff to %s", o.activeKind)
		return
	}
	o.current = blocked
}

func (o *Orchestrator) onRulesUpdated(event ruledb.AppEventRulesUpdated) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.apps = event.Rules
	o.appsLoaded = true
	o.recomputeLocked()
}

func (o *Orchestrator) onNetworkContext(event AppEventNetworkContext) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.netCtx == event.Context {
		return
	}
	log.Debug().Msgf("Network context changed: %+v", event.Context)
	o.netCtx = event.Context
	o.recomputeLocked()
}

func (o *Orchestrator) onTunnelPermissionChanged(value interface{}) {
	o.prober.Invalidate()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Status != Degraded {
		return
	}
	granted, ok := value.(bool)
	if !ok || !granted {
		return
	}
	log.Info().Msg("Tunnel permission granted, recovering from error state")
	if err := o.startFirewallLocked(); err != nil {
		log.Warn().Err(err).Msg("Recovery after tunnel permission grant failed")
	}
}

func (o *Orchestrator) setStateLocked(next State) {
	previous := o.state
	o.state = next
	id, _ := uuid.NewV4()
	log.Info().Msgf("Firewall state: %s -> %s", previous, next)
	o.bus.Publish(AppTopicFirewallState, AppEventFirewallState{
		TransitionID: id.String(),
		Previous:     previous,
		Current:      next,
	})
}
