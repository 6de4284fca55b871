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

	"github.com/netfence/netfence/eventbus"
	"github.com/netfence/netfence/nfapi/utils"
	"github.com/netfence/netfence/orchestrator"
	"github.com/netfence/netfence/rules"
)

// networkEndpoint is the ingress of the external network/screen observer:
// whatever watches connectivity reports context changes here.
type networkEndpoint struct {
	bus eventbus.Publisher
}

// AddRoutesForNetwork registers the network context ingress route
func AddRoutesForNetwork(router *httprouter.Router, bus eventbus.Publisher) {
	endpoint := &networkEndpoint{bus: bus}
	router.PUT("/network", endpoint.Update)
}

type networkRequest struct {
	Class     string `json:"class"`
	ScreenOff bool   `json:"screen_off"`
}

var knownClasses = map[rules.NetworkClass]bool{
	rules.WiFi:          true,
	rules.Mobile:        true,
	rules.MobileRoaming: true,
	rules.NoNetwork:     true,
}

// Update publishes a network context change to the orchestrator
func (endpoint *networkEndpoint) Update(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request networkRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	class := rules.NetworkClass(request.Class)
	if !knownClasses[class] {
		utils.SendErrorMessage(resp, "unknown network class", http.StatusUnprocessableEntity)
		return
	}
	endpoint.bus.Publish(orchestrator.AppTopicNetworkContext, orchestrator.AppEventNetworkContext{
		Context: rules.NetworkContext{Class: class, ScreenOff: request.ScreenOff},
	})
	utils.WriteAsJSON(request, resp)
}
