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

package orchestrator

import (
	"sync"

	"github.com/netfence/netfence/firewall"
	"github.com/netfence/netfence/probes"
	"github.com/netfence/netfence/rules"
)

// opLog records backend operations across all fakes in call order
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ops...)
}

func (l *opLog) indexOf(op string) int {
	for i, recorded := range l.list() {
		if recorded == op {
			return i
		}
	}
	return -1
}

type appliedDiff struct {
	added   []int
	removed []int
}

type backendFake struct {
	kind     string
	ops      *opLog
	startErr error
	granular bool

	mu      sync.Mutex
	active  bool
	blocked rules.UIDSet
	diffs   []appliedDiff
}

func (b *backendFake) Start(blocked rules.UIDSet) error {
	b.ops.add(b.kind + ":start")
	if b.startErr != nil {
		return b.startErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = true
	b.blocked = blocked
	return nil
}

func (b *backendFake) ApplyDiff(added, removed []int) error {
	b.ops.add(b.kind + ":diff")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diffs = append(b.diffs, appliedDiff{added: added, removed: removed})
	for _, uid := range added {
		b.blocked.Add(uid)
	}
	return nil
}

func (b *backendFake) Stop() error {
	b.ops.add(b.kind + ":stop")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = false
	return nil
}

func (b *backendFake) IsActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

func (b *backendFake) SupportsGranularControl() bool {
	return b.granular
}

func (b *backendFake) setActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = active
}

func (b *backendFake) lastDiff() appliedDiff {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.diffs) == 0 {
		return appliedDiff{}
	}
	return b.diffs[len(b.diffs)-1]
}

// factoryFake creates backendFakes and keeps handles on them
type factoryFake struct {
	ops       *opLog
	startErr  map[firewall.Kind]error
	preActive map[firewall.Kind]bool

	mu      sync.Mutex
	created map[firewall.Kind][]*backendFake
}

func newFactoryFake(ops *opLog) *factoryFake {
	return &factoryFake{
		ops:       ops,
		startErr:  map[firewall.Kind]error{},
		preActive: map[firewall.Kind]bool{},
		created:   map[firewall.Kind][]*backendFake{},
	}
}

func (f *factoryFake) CreateBackend(kind firewall.Kind) (firewall.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	backend := &backendFake{
		kind:     string(kind),
		ops:      f.ops,
		startErr: f.startErr[kind],
		granular: kind.SupportsGranularControl(),
		active:   f.preActive[kind],
		blocked:  rules.NewUIDSet(),
	}
	f.created[kind] = append(f.created[kind], backend)
	return backend, nil
}

func (f *factoryFake) last(kind firewall.Kind) *backendFake {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.created[kind]
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func (f *factoryFake) createdCount(kind firewall.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created[kind])
}

type proberFake struct {
	mu            sync.Mutex
	report        probes.Report
	invalidations int
}

func (p *proberFake) Report() probes.Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

func (p *proberFake) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidations++
}

func (p *proberFake) set(report probes.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.report = report
}

type storeFake struct {
	mu        sync.Mutex
	apps      []rules.AppRule
	policy    rules.GlobalPolicy
	shouldRun bool
	last      firewall.Kind
	hasLast   bool
}

func (s *storeFake) ListRules() ([]rules.AppRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rules.AppRule(nil), s.apps...), nil
}

func (s *storeFake) GlobalPolicy() rules.GlobalPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy
}

func (s *storeFake) ShouldRun() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shouldRun
}

func (s *storeFake) SetShouldRun(should bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldRun = should
	return nil
}

func (s *storeFake) LastBackend() (firewall.Kind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.hasLast
}

func (s *storeFake) SetLastBackend(kind firewall.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = kind
	s.hasLast = true
	return nil
}

type publishedEvent struct {
	topic string
	data  interface{}
}

type busFake struct {
	mu        sync.Mutex
	published []publishedEvent
}

func (b *busFake) Publish(topic string, data interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedEvent{topic: topic, data: data})
}

func (b *busFake) Subscribe(topic string, fn interface{}) error      { return nil }
func (b *busFake) SubscribeAsync(topic string, fn interface{}) error { return nil }
func (b *busFake) Unsubscribe(topic string, fn interface{}) error    { return nil }

func (b *busFake) events(topic string) []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	var matched []interface{}
	for _, event := range b.published {
		if event.topic == topic {
			matched = append(matched, event.data)
		}
	}
	return matched
}
