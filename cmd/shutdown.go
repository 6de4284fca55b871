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

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Cleanup releases daemon resources on shutdown
type Cleanup func() error

// GracefulShutdown returns a shutdown func that runs cleanup and leaves
// ending the process to the caller - the blocked CLI action returns once
// cleanup unblocks it.
func GracefulShutdown(cleanup Cleanup) func() {
	return shutdownWith(cleanup, func(int) {})
}

// ForcedShutdown returns a shutdown func that runs cleanup and terminates
// the process with its outcome as the exit code.
func ForcedShutdown(cleanup Cleanup) func() {
	return shutdownWith(cleanup, os.Exit)
}

func shutdownWith(cleanup Cleanup, exit func(code int)) func() {
	return func() {
		if err := cleanup(); err != nil {
			log.Error().Err(err).Msg("Shutdown cleanup failed")
			exit(1)
			return
		}
		log.Info().Msg("NetFence daemon stopped")
		exit(0)
	}
}

// StopOnInterrupts runs the shutdown func once a termination signal arrives
func StopOnInterrupts(shutdown func()) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig := <-signals
		log.Info().Msgf("Received signal %s, shutting down", sig)
		shutdown()
	}()
}
