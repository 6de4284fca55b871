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

package logconfig

import (
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// LogOptions log options
type LogOptions struct {
	LogLevel zerolog.Level
	Filepath string
}

// CurrentLogOptions current log options
var CurrentLogOptions = LogOptions{
	LogLevel: zerolog.DebugLevel,
}

var (
	logLevelFlag = cli.StringFlag{
		Name: "log-level",
		Usage: func() string {
			allLevels := []string{
				zerolog.TraceLevel.String(),
				zerolog.DebugLevel.String(),
				zerolog.InfoLevel.String(),
				zerolog.WarnLevel.String(),
				zerolog.ErrorLevel.String(),
			}
			return fmt.Sprintf("Set the logging level (%s)", strings.Join(allLevels, "|"))
		}(),
		Value: zerolog.DebugLevel.String(),
	}
	logFilepathFlag = cli.StringFlag{
		Name:  "log.path",
		Usage: "Log file path. If empty, logs only to stderr",
	}
)

// RegisterFlags registers logger CLI flags
func RegisterFlags(flags *[]cli.Flag) {
	*flags = append(*flags, &logLevelFlag, &logFilepathFlag)
}

// ParseFlags parses logger CLI flags from context
func ParseFlags(ctx *cli.Context) LogOptions {
	level, err := zerolog.ParseLevel(ctx.String(logLevelFlag.Name))
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse logging level")
		level = zerolog.DebugLevel
	}
	filepath := ctx.String(logFilepathFlag.Name)
	if filepath != "" {
		filepath = path.Join(path.Dir(filepath), path.Base(filepath))
	}
	return LogOptions{
		LogLevel: level,
		Filepath: filepath,
	}
}
