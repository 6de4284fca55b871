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
	"io"
	"path"

	"github.com/arthurkiller/rollingwriter"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// newRollingFileWriter opens the log file at opts.Filepath, rolled over to
// a date-tagged sibling at midnight, wrapped for the plain-text format the
// console uses.
func newRollingFileWriter(opts *LogOptions) (io.Writer, error) {
	out, err := rollingwriter.NewWriterFromConfig(&rollingwriter.Config{
		LogPath:            path.Dir(opts.Filepath),
		FileName:           path.Base(opts.Filepath),
		TimeTagFormat:      "2006.01.02",
		RollingPolicy:      rollingwriter.TimeRolling,
		RollingTimePattern: "0 0 0 * * *",
		WriterMode:         "lock",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rolling log file")
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: timestampFmt,
	}, nil
}
