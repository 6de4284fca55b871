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
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/netfence/netfence/metadata"
	"github.com/netfence/netfence/nfapi/utils"
)

type healthCheckEndpoint struct {
	startTime       time.Time
	currentTimeFunc func() time.Time
}

// AddRouteForHealthCheck registers the daemon liveness route
func AddRouteForHealthCheck(router *httprouter.Router) {
	endpoint := &healthCheckEndpoint{
		startTime:       time.Now(),
		currentTimeFunc: time.Now,
	}
	router.GET("/healthcheck", endpoint.HealthCheck)
}

type healthCheckResponse struct {
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
}

// HealthCheck returns daemon uptime and version
func (endpoint *healthCheckEndpoint) HealthCheck(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(healthCheckResponse{
		Uptime:  endpoint.currentTimeFunc().Sub(endpoint.startTime).String(),
		Version: metadata.VersionAsString(),
	}, resp)
}
