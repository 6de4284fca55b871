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

// Package cmd assembles the daemon from its components
package cmd

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/broker"
	"github.com/netfence/netfence/config"
	"github.com/netfence/netfence/eventbus"
	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/firewall/apptoggle"
	"github.com/netfence/netfence/firewall/tunnel"
	"github.com/netfence/netfence/firewall/uidfilter"
	"github.com/netfence/netfence/nfapi"
	"github.com/netfence/netfence/nfapi/endpoints"
	"github.com/netfence/netfence/orchestrator"
	"github.com/netfence/netfence/probes"
	"github.com/netfence/netfence/ruledb"
	"github.com/netfence/netfence/rules"
)

const brokerRequestTimeout = 3 * time.Second

// Dependencies is the DI container of the daemon
type Dependencies struct {
	EventBus eventbus.EventBus

	RuleDB       *ruledb.DB
	BrokerClient *broker.Client
	Prober       *probes.Prober

	BackendRegistry *firewall.Registry
	Orchestrator    *orchestrator.Orchestrator
	Notifier        *orchestrator.Notifier

	APIServer nfapi.APIServer
}

// Bootstrap initiates all dependencies and starts serving the control API
func (di *Dependencies) Bootstrap() error {
	di.EventBus = eventbus.New()
	config.Current.EnableEventPublishing(di.EventBus)

	dataDir := config.Current.GetString(config.FlagDataDir.Name)
	if err := di.bootstrapUserConfig(dataDir); err != nil {
		return err
	}
	if err := di.bootstrapStorage(dataDir); err != nil {
		return err
	}
	di.bootstrapBackends()
	if err := di.bootstrapOrchestrator(); err != nil {
		return err
	}
	return di.bootstrapAPI()
}

func (di *Dependencies) bootstrapUserConfig(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}
	location := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(location); os.IsNotExist(err) {
		if err := os.WriteFile(location, []byte{}, 0600); err != nil {
			return errors.Wrap(err, "failed to create user config file")
		}
	}
	return config.Current.LoadUserConfig(location)
}

func (di *Dependencies) bootstrapStorage(dataDir string) error {
	db, err := ruledb.Open(dataDir, di.EventBus)
	if err != nil {
		return err
	}
	di.RuleDB = db

	policy := rules.ParseGlobalPolicy(config.Current.GetString(config.FlagGlobalPolicy.Name))
	return db.SeedGlobalPolicy(policy)
}

func (di *Dependencies) bootstrapBackends() {
	di.BrokerClient = broker.NewClient(config.Current.GetString(config.FlagBrokerSocket.Name), brokerRequestTimeout)
	di.Prober = probes.NewProber(di.BrokerClient, func() bool {
		return config.Current.GetBool(config.FlagTunnelPermitted.Name)
	})

	di.BackendRegistry = firewall.NewRegistry()
	di.BackendRegistry.Register(firewall.UIDFilter, func() (firewall.Backend, error) {
		return uidfilter.New(), nil
	})
	di.BackendRegistry.Register(firewall.Tunnel, func() (firewall.Backend, error) {
		return tunnel.New(config.Current.GetString(config.FlagTunnelInterface.Name)), nil
	})
	di.BackendRegistry.Register(firewall.AppToggle, func() (firewall.Backend, error) {
		return apptoggle.New(di.BrokerClient), nil
	})
}

func (di *Dependencies) bootstrapOrchestrator() error {
	mode := config.Current.GetString(config.FlagFirewallMode.Name)
	di.Orchestrator = orchestrator.NewOrchestrator(di.RuleDB, di.Prober, di.BackendRegistry, di.EventBus, mode)
	if err := di.Orchestrator.Subscribe(di.EventBus); err != nil {
		return err
	}
	di.Notifier = orchestrator.NewNotifier()
	if err := di.Notifier.Subscribe(di.EventBus); err != nil {
		return err
	}

	if err := di.Orchestrator.Reconcile(); err != nil {
		// the daemon still serves its API, recovery keeps retrying
		log.Warn().Err(err).Msg("Startup reconciliation did not bring the firewall up")
	}
	return nil
}

func (di *Dependencies) bootstrapAPI() error {
	address := config.Current.GetString(config.FlagAPIAddress.Name)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to bind API to %s", address)
	}

	router := httprouter.New()
	endpoints.AddRouteForHealthCheck(router)
	endpoints.AddRoutesForFirewall(router, di.Orchestrator, di.saveMode)
	endpoints.AddRoutesForRules(router, di.RuleDB)
	endpoints.AddRoutesForNetwork(router, di.EventBus)
	endpoints.AddRoutesForPermissions(router, func() bool {
		return config.Current.GetBool(config.FlagTunnelPermitted.Name)
	}, di.grantTunnelPermission)

	di.APIServer = nfapi.NewServer(listener, router)
	di.APIServer.StartServing()
	boundAddress, _ := di.APIServer.Address()
	log.Info().Msgf("Control API started on %s", boundAddress)
	return nil
}

// grantTunnelPermission persists the tunnel grant. Setting the user value
// publishes the config topic the orchestrator listens on, so a grant while
// the firewall is down triggers its recovery.
func (di *Dependencies) grantTunnelPermission(permitted bool) error {
	config.Current.SetUser(config.FlagTunnelPermitted.Name, permitted)
	return config.Current.SaveUserConfig()
}

func (di *Dependencies) saveMode(mode string) {
	config.Current.SetUser(config.FlagFirewallMode.Name, mode)
	if err := config.Current.SaveUserConfig(); err != nil {
		log.Warn().Err(err).Msg("Failed to persist firewall mode")
	}
}

// Wait blocks until the control API stops serving
func (di *Dependencies) Wait() error {
	return di.APIServer.Wait()
}

// Kill stops the control API. The firewall itself is left as-is: kernel
// rules survive the process and startup reconciliation adopts them.
func (di *Dependencies) Kill() error {
	if di.APIServer != nil {
		di.APIServer.Stop()
	}
	return nil
}

// Shutdown releases the remaining resources
func (di *Dependencies) Shutdown() {
	if di.BrokerClient != nil {
		if err := di.BrokerClient.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close broker connection")
		}
	}
	if di.RuleDB != nil {
		if err := di.RuleDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close rule database")
		}
	}
}
