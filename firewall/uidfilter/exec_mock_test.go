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
	"strings"
)

type cmdExecResult struct {
	called int
	output []string
	err    error
}

type mockedCmdExec struct {
	mocks map[string]cmdExecResult
}

func (mce *mockedCmdExec) IptablesExec(args ...string) ([]string, error) {
	key := argsToKey(args...)
	res := mce.mocks[key]
	res.called++
	mce.mocks[key] = res
	return res.output, res.err
}

func (mce *mockedCmdExec) VerifyCalledWithArgs(args ...string) bool {
	return mce.mocks[argsToKey(args...)].called > 0
}

func (mce *mockedCmdExec) CallCount(args ...string) int {
	return mce.mocks[argsToKey(args...)].called
}

func argsToKey(args ...string) string {
	return strings.Join(args, " ")
}
