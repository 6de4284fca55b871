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
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/orchestrator"
	"github.com/netfence/netfence/rules"
)

type controllerFake struct {
	state    orchestrator.State
	mode     string
	enabled  int
	disabled int
	modeErr  error
}

func (c *controllerFake) Status() orchestrator.State { return c.state }
func (c *controllerFake) Mode() string               { return c.mode }
func (c *controllerFake) Enable() error              { c.enabled++; return nil }
func (c *controllerFake) Disable() error             { c.disabled++; return nil }
func (c *controllerFake) SetMode(mode string) error {
	if c.modeErr != nil {
		return c.modeErr
	}
	c.mode = mode
	return nil
}

type ruleStoreFake struct {
	rules  map[string]rules.AppRule
	policy rules.GlobalPolicy
}

func newRuleStoreFake() *ruleStoreFake {
	return &ruleStoreFake{rules: map[string]rules.AppRule{}, policy: rules.BlockAllByDefault}
}

func (s *ruleStoreFake) ListRules() ([]rules.AppRule, error) {
	all := []rules.AppRule{}
	for _, rule := range s.rules {
		all = append(all, rule)
	}
	return all, nil
}

func (s *ruleStoreFake) GetRule(packageName string) (rules.AppRule, error) {
	rule, ok := s.rules[packageName]
	if !ok {
		return rules.AppRule{}, errors.Errorf("no rule for %q", packageName)
	}
	return rule, nil
}

func (s *ruleStoreFake) UpsertRule(rule rules.AppRule) error {
	rule.Normalize()
	s.rules[rule.PackageName] = rule
	return nil
}

func (s *ruleStoreFake) DeleteRule(packageName string) error {
	if _, ok := s.rules[packageName]; !ok {
		return errors.Errorf("no rule for %q", packageName)
	}
	delete(s.rules, packageName)
	return nil
}

func (s *ruleStoreFake) GlobalPolicy() rules.GlobalPolicy { return s.policy }

func (s *ruleStoreFake) SetGlobalPolicy(policy rules.GlobalPolicy) error {
	s.policy = policy
	return nil
}

type publisherFake struct {
	topics []string
	events []interface{}
}

func (p *publisherFake) Publish(topic string, data interface{}) {
	p.topics = append(p.topics, topic)
	p.events = append(p.events, data)
}

func serve(router *httprouter.Router, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestStatusEndpoint(t *testing.T) {
	controller := &controllerFake{
		state: orchestrator.State{Status: orchestrator.Running, Kind: firewall.UIDFilter},
		mode:  orchestrator.ModeAuto,
	}
	router := httprouter.New()
	AddRoutesForFirewall(router, controller, nil)

	resp := serve(router, http.MethodGet, "/status", "")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"state": {"status": "Running", "backend": "uidfilter"}, "mode": "auto"}`, resp.Body.String())
}

func TestEnableAndDisable(t *testing.T) {
	controller := &controllerFake{mode: orchestrator.ModeAuto}
	router := httprouter.New()
	AddRoutesForFirewall(router, controller, nil)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/enable", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, "/disable", "").Code)
	assert.Equal(t, 1, controller.enabled)
	assert.Equal(t, 1, controller.disabled)
}

func TestSetModeValidatesAndPersists(t *testing.T) {
	controller := &controllerFake{mode: orchestrator.ModeAuto}
	var persisted string
	router := httprouter.New()
	AddRoutesForFirewall(router, controller, func(mode string) { persisted = mode })

	resp := serve(router, http.MethodPut, "/mode", `{"mode": "bogus"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Empty(t, persisted)

	resp = serve(router, http.MethodPut, "/mode", `{"mode": "tunnel"}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "tunnel", controller.mode)
	assert.Equal(t, "tunnel", persisted)
}

func TestRuleUpsertForcesIdentityFromPath(t *testing.T) {
	store := newRuleStoreFake()
	router := httprouter.New()
	AddRoutesForRules(router, store)

	body := `{"package_name": "com.example.spoofed", "uid": 10101, "wifi_blocked": true}`
	resp := serve(router, http.MethodPut, "/rules/com.example.app", body)
	require.Equal(t, http.StatusOK, resp.Code)

	stored, err := store.GetRule("com.example.app")
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", stored.PackageName)
	assert.True(t, stored.HasRule, "a rule stored through the API is explicit")
	assert.True(t, stored.WiFiBlocked)
}

func TestRuleUpsertNormalizesRoaming(t *testing.T) {
	store := newRuleStoreFake()
	router := httprouter.New()
	AddRoutesForRules(router, store)

	resp := serve(router, http.MethodPut, "/rules/com.example.app", `{"uid": 10101, "roaming_blocked": true}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var stored rules.AppRule
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stored))
	assert.True(t, stored.MobileBlocked)
}

func TestRuleGetAndDeleteMissing(t *testing.T) {
	store := newRuleStoreFake()
	router := httprouter.New()
	AddRoutesForRules(router, store)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/rules/com.example.gone", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/rules/com.example.gone", "").Code)
}

func TestPolicyRoundTrip(t *testing.T) {
	store := newRuleStoreFake()
	router := httprouter.New()
	AddRoutesForRules(router, store)

	resp := serve(router, http.MethodGet, "/policy", "")
	assert.JSONEq(t, `{"policy": "block"}`, resp.Body.String())

	resp = serve(router, http.MethodPut, "/policy", `{"policy": "allow"}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, rules.AllowAllByDefault, store.policy)

	resp = serve(router, http.MethodPut, "/policy", `{"policy": "maybe"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, rules.AllowAllByDefault, store.policy)
}

func TestNetworkContextIngress(t *testing.T) {
	bus := &publisherFake{}
	router := httprouter.New()
	AddRoutesForNetwork(router, bus)

	resp := serve(router, http.MethodPut, "/network", `{"class": "roaming", "screen_off": true}`)
	require.Equal(t, http.StatusOK, resp.Code)

	require.Len(t, bus.events, 1)
	assert.Equal(t, orchestrator.AppTopicNetworkContext, bus.topics[0])
	event, ok := bus.events[0].(orchestrator.AppEventNetworkContext)
	require.True(t, ok)
	assert.Equal(t, rules.MobileRoaming, event.Context.Class)
	assert.True(t, event.Context.ScreenOff)
}

func TestNetworkContextRejectsUnknownClass(t *testing.T) {
	bus := &publisherFake{}
	router := httprouter.New()
	AddRoutesForNetwork(router, bus)

	resp := serve(router, http.MethodPut, "/network", `{"class": "bluetooth"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Empty(t, bus.events)
}

func TestTunnelPermissionGrant(t *testing.T) {
	permitted := false
	router := httprouter.New()
	AddRoutesForPermissions(router, func() bool {
		return permitted
	}, func(value bool) error {
		permitted = value
		return nil
	})

	resp := serve(router, http.MethodGet, "/permissions/tunnel", "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"permitted": false}`, resp.Body.String())

	resp = serve(router, http.MethodPut, "/permissions/tunnel", `{"permitted": true}`)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"permitted": true}`, resp.Body.String())
	assert.True(t, permitted)
}

func TestTunnelPermissionGrantRejectsBadBody(t *testing.T) {
	router := httprouter.New()
	AddRoutesForPermissions(router, func() bool { return false }, func(bool) error {
		t.Fatal("grant must not run on a malformed request")
		return nil
	})

	resp := serve(router, http.MethodPut, "/permissions/tunnel", "not json")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthCheck(t *testing.T) {
	router := httprouter.New()
	AddRouteForHealthCheck(router)

	resp := serve(router, http.MethodGet, "/healthcheck", "")
	assert.Equal(t, http.StatusOK, resp.Code)

	var parsed healthCheckResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &parsed))
	assert.NotEmpty(t, parsed.Version)
	assert.NotEmpty(t, parsed.Uptime)
}
