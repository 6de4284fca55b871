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

package daemon

import (
	"github.com/urfave/cli/v2"

	"github.com/netfence/netfence/cmd"
	"github.com/netfence/netfence/config"
	"github.com/netfence/netfence/logconfig"
)

// NewCommand function creates run command
func NewCommand() *cli.Command {
	var di cmd.Dependencies

	return &cli.Command{
		Name:      "daemon",
		Usage:     "Starts the NetFence firewall daemon",
		ArgsUsage: " ",
		Action: func(ctx *cli.Context) error {
			logOptions := logconfig.ParseFlags(ctx)
			logconfig.Configure(&logOptions)
			config.ParseFlags(ctx)

			if err := di.Bootstrap(); err != nil {
				return err
			}

			cmd.StopOnInterrupts(cmd.GracefulShutdown(di.Kill))

			return di.Wait()
		},
		After: func(ctx *cli.Context) error {
			err := di.Kill()
			di.Shutdown()
			return err
		},
	}
}
