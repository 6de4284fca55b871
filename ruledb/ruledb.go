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

// Package ruledb is the durable rule store: per-app rules, the global
// policy and the orchestrator's restart intent, kept in a storm (bbolt)
// database. Mutations are announced on the event bus as full snapshots.
package ruledb

import (
	"path/filepath"

	"github.com/asdine/storm/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/netfence/netfence/eventbus"
	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/rules"
)

const (
	// AppTopicRulesUpdated is the push stream of rule snapshots
	AppTopicRulesUpdated = "RulesUpdated"

	dbFileName = "netfence.db"

	settingsBucket  = "settings"
	keyGlobalPolicy = "global-policy"
	keyShouldRun    = "firewall-should-run"
	keyLastBackend  = "last-backend"
)

// AppEventRulesUpdated is emitted on AppTopicRulesUpdated after any rule mutation
type AppEventRulesUpdated struct {
	Rules []rules.AppRule
}

// DB is the storm-backed rule store
type DB struct {
	db  *storm.DB
	bus eventbus.Publisher
}

// Open creates or opens the rule database inside dataDir
func Open(dataDir string, bus eventbus.Publisher) (*DB, error) {
	db, err := storm.Open(filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rule database")
	}
	return &DB{db: db, bus: bus}, nil
}

// Close closes the underlying database
func (d *DB) Close() error {
	return d.db.Close()
}

// ListRules returns all per-app rules
func (d *DB) ListRules() ([]rules.AppRule, error) {
	var all []rules.AppRule
	if err := d.db.All(&all); err != nil {
		return nil, errors.Wrap(err, "failed to list rules")
	}
	return all, nil
}

// GetRule returns the rule of one app
func (d *DB) GetRule(packageName string) (rules.AppRule, error) {
	var rule rules.AppRule
	err := d.db.One("PackageName", packageName, &rule)
	if err == storm.ErrNotFound {
		return rules.AppRule{}, errors.Errorf("no rule for %q", packageName)
	}
	return rule, errors.Wrap(err, "failed to read rule")
}

// UpsertRule stores the rule, correcting dependent flags first, and
// publishes a fresh snapshot.
func (d *DB) UpsertRule(rule rules.AppRule) error {
	if rule.Normalize() {
		log.Debug().Msgf("Corrected dependent flags of %q: roaming block requires mobile block", rule.PackageName)
	}
	if err := d.db.Save(&rule); err != nil {
		return errors.Wrap(err, "failed to save rule")
	}
	d.publishSnapshot()
	return nil
}

// DeleteRule removes the rule of one app and publishes a fresh snapshot
func (d *DB) DeleteRule(packageName string) error {
	rule, err := d.GetRule(packageName)
	if err != nil {
		return err
	}
	if err := d.db.DeleteStruct(&rule); err != nil {
		return errors.Wrap(err, "failed to delete rule")
	}
	d.publishSnapshot()
	return nil
}

// GlobalPolicy returns the persisted global policy, defaulting to block-all
func (d *DB) GlobalPolicy() rules.GlobalPolicy {
	var value string
	err := d.db.Get(settingsBucket, keyGlobalPolicy, &value)
	if err != nil {
		return rules.BlockAllByDefault
	}
	return rules.ParseGlobalPolicy(value)
}

// SeedGlobalPolicy stores the policy only when none was ever persisted,
// letting a CLI flag set the starting point without clobbering a choice
// made through the API.
func (d *DB) SeedGlobalPolicy(policy rules.GlobalPolicy) error {
	var value string
	if err := d.db.Get(settingsBucket, keyGlobalPolicy, &value); err == nil {
		return nil
	}
	return errors.Wrap(d.db.Set(settingsBucket, keyGlobalPolicy, string(policy)), "failed to seed global policy")
}

// SetGlobalPolicy persists the global policy and publishes a fresh snapshot,
// since every fallback decision changes with it.
func (d *DB) SetGlobalPolicy(policy rules.GlobalPolicy) error {
	if err := d.db.Set(settingsBucket, keyGlobalPolicy, string(policy)); err != nil {
		return errors.Wrap(err, "failed to save global policy")
	}
	d.publishSnapshot()
	return nil
}

// ShouldRun returns the persisted "firewall should be running" intent
func (d *DB) ShouldRun() bool {
	var value bool
	if err := d.db.Get(settingsBucket, keyShouldRun, &value); err != nil {
		return false
	}
	return value
}

// SetShouldRun persists the "firewall should be running" intent
func (d *DB) SetShouldRun(should bool) error {
	return errors.Wrap(d.db.Set(settingsBucket, keyShouldRun, should), "failed to save intent")
}

// LastBackend returns the last known active backend kind, if any
func (d *DB) LastBackend() (firewall.Kind, bool) {
	var value string
	if err := d.db.Get(settingsBucket, keyLastBackend, &value); err != nil {
		return "", false
	}
	return firewall.ParseKind(value)
}

// SetLastBackend persists the last known active backend kind
func (d *DB) SetLastBackend(kind firewall.Kind) error {
	return errors.Wrap(d.db.Set(settingsBucket, keyLastBackend, string(kind)), "failed to save last backend")
}

func (d *DB) publishSnapshot() {
	if d.bus == nil {
		return
	}
	all, err := d.ListRules()
	if err != nil {
		log.Error().Err(err).Msg("Failed to publish rules snapshot")
		return
	}
	d.bus.Publish(AppTopicRulesUpdated, AppEventRulesUpdated{Rules: all})
}
