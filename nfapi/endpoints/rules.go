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
	"github.com/netfence/netfence/rules"
)

// ruleStore is the slice of the rule database the API consumes
type ruleStore interface {
	ListRules() ([]rules.AppRule, error)
	GetRule(packageName string) (rules.AppRule, error)
	UpsertRule(rule rules.AppRule) error
	DeleteRule(packageName string) error
	GlobalPolicy() rules.GlobalPolicy
	SetGlobalPolicy(policy rules.GlobalPolicy) error
}

type rulesEndpoint struct {
	store ruleStore
}

// AddRoutesForRules registers the rule management routes
func AddRoutesForRules(router *httprouter.Router, store ruleStore) {
	endpoint := &rulesEndpoint{store: store}
	router.GET("/rules", endpoint.List)
	router.GET("/rules/:package", endpoint.Get)
	router.PUT("/rules/:package", endpoint.Upsert)
	router.DELETE("/rules/:package", endpoint.Delete)
	router.GET("/policy", endpoint.GetPolicy)
	router.PUT("/policy", endpoint.SetPolicy)
}

// List returns all per-app rules
func (endpoint *rulesEndpoint) List(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	all, err := endpoint.store.ListRules()
	if err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(all, resp)
}

// Get returns the rule of one app
func (endpoint *rulesEndpoint) Get(resp http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	rule, err := endpoint.store.GetRule(params.ByName("package"))
	if err != nil {
		utils.SendError(resp, err, http.StatusNotFound)
		return
	}
	utils.WriteAsJSON(rule, resp)
}

// Upsert stores the rule of one app. The package name in the path wins
// over any in the body, and a rule stored through the API is by definition
// an explicit one.
func (endpoint *rulesEndpoint) Upsert(resp http.ResponseWriter, req *http.Request, params httprouter.Params) {
	var rule rules.AppRule
	if err := json.NewDecoder(req.Body).Decode(&rule); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	rule.PackageName = params.ByName("package")
	rule.HasRule = true
	if err := endpoint.store.UpsertRule(rule); err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	stored, err := endpoint.store.GetRule(rule.PackageName)
	if err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(stored, resp)
}

// Delete removes the rule of one app
func (endpoint *rulesEndpoint) Delete(resp http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	if err := endpoint.store.DeleteRule(params.ByName("package")); err != nil {
		utils.SendError(resp, err, http.StatusNotFound)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}

type policyRequest struct {
	Policy string `json:"policy"`
}

// GetPolicy returns the global default policy
func (endpoint *rulesEndpoint) GetPolicy(resp http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.WriteAsJSON(policyRequest{Policy: string(endpoint.store.GlobalPolicy())}, resp)
}

// SetPolicy changes the global default policy
func (endpoint *rulesEndpoint) SetPolicy(resp http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	var request policyRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		utils.SendError(resp, err, http.StatusBadRequest)
		return
	}
	policy := rules.GlobalPolicy(request.Policy)
	if policy != rules.BlockAllByDefault && policy != rules.AllowAllByDefault {
		utils.SendErrorMessage(resp, "unknown policy", http.StatusUnprocessableEntity)
		return
	}
	if err := endpoint.store.SetGlobalPolicy(policy); err != nil {
		utils.SendError(resp, err, http.StatusInternalServerError)
		return
	}
	utils.WriteAsJSON(policyRequest{Policy: string(policy)}, resp)
}
