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

package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/netfence/netfence/nfapi/utils"
)

type permissionsEndpoint struct {
	tunnelPermitted func() bool
	// grantTunnel persists the one-time tunnel grant and announces the
	// change, which recovers a firewall that is down for lack of it
	grantTunnel func(permitted bool) error
}

// AddRoutesForPermissions registers the privilege grant routes
func AddRoutesForPermissions(router *httprouter.Router, tunnelPermitted func() bool, grantTunnel func(permitted bool) error) {
	endpoint := &permissionsEndpoint{tunnelPermitted: tunnelPermitted, grantTunnel: grantTunnel}
	router.GET("/permissions/tunnel", endpoint.GetTunnel)
	router.PUT("/permissions/tunnel", endpoint.SetTunnel)
}

type tunnelPermissionDTO struct {
	Permitted bool `json:"permitted"`
}

// GetTunnel returns whether the tunnel device grant was given
func (endpoint *permissionsEndpoint) GetTunnel(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(tunnelPermissionDTO{Permitted: endpoint.tunnelPermitted()}, resp)
}

// SetTunnel stores the tunnel device grant
func (endpoint *permissionsEndpoint) SetTunnel(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request tunnelPermissionDTO
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if err := endpoint.grantTunnel(request.Permitted); err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(tunnelPermissionDTO{Permitted: endpoint.tunnelPermitted()}, resp)
}
