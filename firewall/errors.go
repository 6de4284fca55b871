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

package firewall

import "github.com/pkg/errors"

var (
	// ErrUnsupportedKind indicates that no backend is registered for the requested kind
	ErrUnsupportedKind = errors.New("unsupported backend kind")
	// ErrStartFailed indicates that a backend failed to come up
	ErrStartFailed = errors.New("backend start failed")
	// ErrBecameInactive indicates that a running backend stopped reporting liveness
	ErrBecameInactive = errors.New("backend became inactive")
	// ErrPermissionNotGranted indicates the tunnel permission was never granted by the user
	ErrPermissionNotGranted = errors.New("tunnel permission not granted")
	// ErrEmptyBlockedSet indicates a refused start with nothing to block. An
	// empty-initialized tunnel device blocks everything - the inverse of intent.
	ErrEmptyBlockedSet = errors.New("refusing to start backend with an empty blocked set")
)
