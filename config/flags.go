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

package config

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

var (
	// FlagDataDir data directory for the rule database and other persistent files.
	FlagDataDir = cli.StringFlag{
		Name:  "data-dir",
		Usage: "Data directory containing the rule database & other persistent files",
	}
	// FlagFirewallMode requested backend selection mode: auto or a forced backend kind.
	FlagFirewallMode = cli.StringFlag{
		Name:  "firewall.mode",
		Usage: "Backend selection mode (auto|tunnel|uidfilter|apptoggle)",
		Value: "auto",
	}
	// FlagGlobalPolicy default decision for apps without an explicit rule.
	FlagGlobalPolicy = cli.StringFlag{
		Name:  "firewall.global-policy",
		Usage: "Default decision for apps without an explicit rule (block|allow)",
		Value: "block",
	}
	// FlagTunnelPermitted marks the one-time tunnel permission as granted.
	FlagTunnelPermitted = cli.BoolFlag{
		Name:  "tunnel.permitted",
		Usage: "Tunnel device permission has been granted by the user",
	}
	// FlagTunnelInterface name of the TUN interface created by the tunnel backend.
	FlagTunnelInterface = cli.StringFlag{
		Name:  "tunnel.interface",
		Usage: "Name of the TUN interface created by the tunnel backend",
		Value: "nfence0",
	}
	// FlagBrokerSocket path of the privileged broker unix socket.
	FlagBrokerSocket = cli.StringFlag{
		Name:  "broker.socket",
		Usage: "Path of the privileged broker unix socket",
		Value: "/var/run/netfence-broker.sock",
	}
	// FlagAPIAddress listen address of the local control API.
	FlagAPIAddress = cli.StringFlag{
		Name:  "api.address",
		Usage: "Listen address of the local control API",
		Value: "127.0.0.1:4450",
	}
)

// RegisterFlags function registers all daemon flags to flag list
func RegisterFlags(flags *[]cli.Flag) error {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	FlagDataDir.Value = filepath.Join(userHomeDir, ".netfence")

	*flags = append(*flags,
		&FlagDataDir,
		&FlagFirewallMode,
		&FlagGlobalPolicy,
		&FlagTunnelPermitted,
		&FlagTunnelInterface,
		&FlagBrokerSocket,
		&FlagAPIAddress,
	)
	return nil
}

// ParseFlags function fills in app options from CLI context
func ParseFlags(ctx *cli.Context) {
	Current.ParseStringFlag(ctx, FlagDataDir)
	Current.ParseStringFlag(ctx, FlagFirewallMode)
	Current.ParseStringFlag(ctx, FlagGlobalPolicy)
	Current.ParseBoolFlag(ctx, FlagTunnelPermitted)
	Current.ParseStringFlag(ctx, FlagTunnelInterface)
	Current.ParseStringFlag(ctx, FlagBrokerSocket)
	Current.ParseStringFlag(ctx, FlagAPIAddress)
}

// ParseStringFlag parses a cli.StringFlag from command's context and
// stores the value as a CLI value if it was explicitly set, default otherwise
func (cfg *Config) ParseStringFlag(ctx *cli.Context, flag cli.StringFlag) {
	if ctx.IsSet(flag.Name) {
		cfg.SetCLI(flag.Name, ctx.String(flag.Name))
	} else {
		cfg.SetDefault(flag.Name, flag.Value)
	}
}

// ParseBoolFlag parses a cli.BoolFlag from command's context and
// stores the value as a CLI value if it was explicitly set, default otherwise
func (cfg *Config) ParseBoolFlag(ctx *cli.Context, flag cli.BoolFlag) {
	if ctx.IsSet(flag.Name) {
		cfg.SetCLI(flag.Name, ctx.Bool(flag.Name))
	} else {
		cfg.SetDefault(flag.Name, flag.Value)
	}
}
