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

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/nfapi/utils"
	"github.com/netfence/netfence/orchestrator"
)

// firewallController is the slice of the orchestrator the API consumes
type firewallController interface {
	Status() orchestrator.State
	Mode() string
	Enable() error
	Disable() error
	SetMode(mode string) error
}

type firewallEndpoint struct {
	controller firewallController
	// saveMode persists a mode change beyond the process lifetime, nil
	// when the caller does not want persistence
	saveMode func(mode string)
}

// AddRoutesForFirewall registers the firewall control routes
func AddRoutesForFirewall(router *httprouter.Router, controller firewallController, saveMode func(mode string)) {
	endpoint := &firewallEndpoint{controller: controller, saveMode: saveMode}
	router.GET("/status", endpoint.Status)
	router.POST("/enable", endpoint.Enable)
	router.POST("/disable", endpoint.Disable)
	router.GET("/mode", endpoint.GetMode)
	router.PUT("/mode", endpoint.SetMode)
}

type statusResponse struct {
	State orchestrator.State `json:"state"`
	Mode  string             `json:"mode"`
}

// Status returns the firewall state machine value and selection mode
func (endpoint *firewallEndpoint) Status(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(statusResponse{
		State: endpoint.controller.Status(),
		Mode:  endpoint.controller.Mode(),
	}, resp)
}

// Enable starts the firewall
func (endpoint *firewallEndpoint) Enable(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := endpoint.controller.Enable(); err != nil {
		utils.SendError(resp, err, http.StatusServiceUnavailable)
		return
	}
	utils.WriteAsJSON(statusResponse{State: endpoint.controller.Status(), Mode: endpoint.controller.Mode()}, resp)
}

// Disable stops the firewall
func (endpoint *firewallEndpoint) Disable(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := endpoint.controller.Disable(); err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(statusResponse{State: endpoint.controller.Status(), Mode: endpoint.controller.Mode()}, resp)
}

type modeRequest struct {
	Mode string `json:"mode"`
}

// GetMode returns the backend selection mode
func (endpoint *firewallEndpoint) GetMode(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(modeRequest{Mode: endpoint.controller.Mode()}, resp)
}

// SetMode changes the backend selection mode
func (endpoint *firewallEndpoint) SetMode(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request modeRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	if request.Mode != orchestrator.ModeAuto {
		if _, ok := firewall.ParseKind(request.Mode); !ok {
			utils.SendErrorMessage(resp, "unknown mode", http.StatusUnprocessableEntity)
			return
		}
	}
	if err := endpoint.controller.SetMode(request.Mode); err != nil {
		utils.SendError(resp, err, http.StatusUnprocessableEntity)
		return
	}
	if endpoint.saveMode != nil {
		endpoint.saveMode(request.Mode)
	}
	utils.WriteAsJSON(modeRequest{Mode: endpoint.controller.Mode()}, resp)
}
