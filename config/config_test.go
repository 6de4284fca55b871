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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// This only tests user configuration, not the merging between multiple option sources
func TestUserConfig_Load(t *testing.T) {
	// given
	configFileName := filepath.Join(t.TempDir(), "config.toml")
	tomlContent := `
		[firewall]
		mode = "uidfilter"
	`
	err := os.WriteFile(configFileName, []byte(tomlContent), 0700)
	assert.NoError(t, err)

	// when
	cfg := NewConfig()
	// then
	assert.Nil(t, cfg.Get("firewall.mode"))

	// when
	err = cfg.LoadUserConfig(configFileName)
	// then
	assert.NoError(t, err)
	assert.Equal(t, "uidfilter", cfg.GetString("firewall.mode"))
}

func TestUserConfig_Save(t *testing.T) {
	// given
	configFileName := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(configFileName, nil, 0700)
	assert.NoError(t, err)

	cfg := NewConfig()
	err = cfg.LoadUserConfig(configFileName)
	assert.NoError(t, err)

	// when: app is configured with defaults + user + CLI values
	cfg.SetDefault("firewall.global-policy", "block")
	cfg.SetDefault("firewall.mode", "auto")
	cfg.SetUser("firewall.mode", "tunnel")
	cfg.SetCLI("firewall.mode", "apptoggle")
	// then: CLI values are prioritized over user over defaults
	assert.Equal(t, "block", cfg.GetString("firewall.global-policy"))
	assert.Equal(t, "apptoggle", cfg.GetString("firewall.mode"))

	// when: user configuration is saved
	err = cfg.SaveUserConfig()
	// then: only user configuration values are stored
	assert.NoError(t, err)
	tomlContent, err := os.ReadFile(configFileName)
	assert.NoError(t, err)
	assert.Contains(t, string(tomlContent), `mode = "tunnel"`)
	assert.NotContains(t, string(tomlContent), `global-policy`)
}

func TestConfig_CLIValueRemovalFallsBackToUser(t *testing.T) {
	cfg := NewConfig()
	cfg.SetUser("broker.socket", "/tmp/broker.sock")
	cfg.SetCLI("broker.socket", "/run/broker.sock")
	assert.Equal(t, "/run/broker.sock", cfg.GetString("broker.socket"))

	cfg.RemoveCLI("broker.socket")
	assert.Equal(t, "/tmp/broker.sock", cfg.GetString("broker.socket"))
}
