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

package uidfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/netfence/netfence/rules"
)

func TestStartSetsUpChainWithInitialRules(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			"--version": {
				output: []string{"iptables v1.6.0"},
			},
			"-S OUTPUT": {
				output: []string{"-P OUTPUT ACCEPT"},
			},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	backend := New()
	assert.NoError(t, backend.Start(rules.NewUIDSet(10001, 10002)))
	assert.True(t, mockedExec.VerifyCalledWithArgs(addChain, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(uidRuleArgs(appendRule, 10001)...))
	assert.True(t, mockedExec.VerifyCalledWithArgs(uidRuleArgs(appendRule, 10002)...))
	assert.True(t, mockedExec.VerifyCalledWithArgs(appendRule, outputChain, jumpTo, dropChain))
}

func TestStartIsSuccessfulIfPreviousCleanupFailed(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			"--version": {
				output: []string{"iptables v1.6.0"},
			},
			"-S OUTPUT": {
				output: []string{
					"-P OUTPUT ACCEPT",
					// leftover - drop chain is still wired
					"-A OUTPUT -j NETFENCE_UID_DROP",
				},
			},
			// drop chain still exists with a stale rule
			"-S NETFENCE_UID_DROP": {
				output: []string{
					"-A NETFENCE_UID_DROP -m owner --uid-owner 10005 -j REJECT",
				},
			},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	backend := New()
	assert.NoError(t, backend.Start(rules.NewUIDSet(10001)))
	assert.True(t, mockedExec.VerifyCalledWithArgs(removeRule, outputChain, jumpTo, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(removeChainRules, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(removeChain, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(addChain, dropChain))
}

func TestApplyDiffIsIdempotent(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			"--version": {output: []string{"iptables v1.6.0"}},
			"-S OUTPUT": {output: []string{"-P OUTPUT ACCEPT"}},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	backend := New()
	assert.NoError(t, backend.Start(rules.NewUIDSet(10001)))

	assert.NoError(t, backend.ApplyDiff([]int{10002}, []int{10001}))
	assert.NoError(t, backend.ApplyDiff([]int{10002}, []int{10001}))

	assert.Equal(t, 1, mockedExec.CallCount(uidRuleArgs(appendRule, 10002)...))
	assert.Equal(t, 1, mockedExec.CallCount(uidRuleArgs(removeRule, 10001)...))
}

func TestApplyDiffOnStoppedBackendFails(t *testing.T) {
	backend := New()
	assert.Error(t, backend.ApplyDiff([]int{10001}, nil))
}

func TestStopTearsDownChain(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			"--version": {output: []string{"iptables v1.6.0"}},
			"-S OUTPUT": {output: []string{"-P OUTPUT ACCEPT"}},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	backend := New()
	assert.NoError(t, backend.Start(rules.NewUIDSet(10001)))
	assert.NoError(t, backend.Stop())

	assert.True(t, mockedExec.VerifyCalledWithArgs(removeRule, outputChain, jumpTo, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(removeChainRules, dropChain))
	assert.True(t, mockedExec.VerifyCalledWithArgs(removeChain, dropChain))
	assert.False(t, backend.IsActive())
}

func TestFreshBackendSeesResidualKernelChain(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			// chain of a previous process is still wired into OUTPUT
			"-S OUTPUT": {
				output: []string{"-P OUTPUT ACCEPT", "-A OUTPUT -j NETFENCE_UID_DROP"},
			},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	// never started in this process, yet the rules are live
	assert.True(t, New().IsActive())
}

func TestIsActiveAsksTheKernel(t *testing.T) {
	mockedExec := &mockedCmdExec{
		mocks: map[string]cmdExecResult{
			"--version": {output: []string{"iptables v1.6.0"}},
			"-S OUTPUT": {output: []string{"-P OUTPUT ACCEPT"}},
		},
	}
	iptablesExec = mockedExec.IptablesExec

	backend := New()
	assert.NoError(t, backend.Start(rules.NewUIDSet(10001)))

	// chain vanished behind our back (root lost, firewall flushed)
	assert.False(t, backend.IsActive())

	mockedExec.mocks["-S OUTPUT"] = cmdExecResult{
		output: []string{"-P OUTPUT ACCEPT", "-A OUTPUT -j NETFENCE_UID_DROP"},
	}
	assert.True(t, backend.IsActive())
}
