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

package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/netfence/netfence/cmd/commands/daemon"
	"github.com/netfence/netfence/cmd/commands/license"
	"github.com/netfence/netfence/cmd/commands/version"
	"github.com/netfence/netfence/config"
	"github.com/netfence/netfence/logconfig"
	"github.com/netfence/netfence/metadata"
)

var (
	licenseCopyright = metadata.LicenseCopyright(
		"run command 'license --warranty'",
		"run command 'license --conditions'",
	)
	versionSummary = metadata.VersionAsSummary(licenseCopyright)
	daemonCommand  = daemon.NewCommand()
	versionCommand = version.NewCommand(versionSummary)
	licenseCommand = license.NewCommand(licenseCopyright)
)

func main() {
	logconfig.Bootstrap()
	app, err := NewCommand()
	if err != nil {
		log.Error().Err(err).Msg("Failed to create command: ")
		os.Exit(1)
	}

	err = app.Run(os.Args)
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute command: ")
		os.Exit(1)
	}
}

// NewCommand function creates application master command
func NewCommand() (*cli.App, error) {
	cli.VersionPrinter = func(ctx *cli.Context) {
		versionCommand.Run(ctx)
	}

	app := cli.NewApp()
	app.Usage = "Per-application firewall daemon"
	app.Authors = []*cli.Author{
		{Name: `The "NetFence" Authors`},
	}
	app.Version = metadata.VersionAsString()
	app.Copyright = licenseCopyright
	if err := config.RegisterFlags(&app.Flags); err != nil {
		return nil, err
	}
	logconfig.RegisterFlags(&app.Flags)
	app.Commands = []*cli.Command{
		versionCommand,
		licenseCommand,
		daemonCommand,
	}

	return app, nil
}
