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

package rules

import "sort"

// UIDSet is a set of OS-level user ids whose traffic is to be blocked
type UIDSet map[int]struct{}

// NewUIDSet creates an empty UID set
func NewUIDSet(uids ...int) UIDSet {
	set := make(UIDSet, len(uids))
	for _, uid := range uids {
		set.Add(uid)
	}
	return set
}

// Add adds a UID to the set
func (s UIDSet) Add(uid int) {
	s[uid] = struct{}{}
}

// Contains reports whether the UID is in the set
func (s UIDSet) Contains(uid int) bool {
	_, ok := s[uid]
	return ok
}

// Empty reports whether no UID is blocked
func (s UIDSet) Empty() bool {
	return len(s) == 0
}

// List returns the UIDs in ascending order
func (s UIDSet) List() []int {
	uids := make([]int, 0, len(s))
	for uid := range s {
		uids = append(uids, uid)
	}
	sort.Ints(uids)
	return uids
}

// Diff returns the UIDs blocked in next but not in s, and the UIDs blocked
// in s but not in next. Applying (added, removed) to a backend holding s
// yields next.
func (s UIDSet) Diff(next UIDSet) (added, removed []int) {
	for uid := range next {
		if !s.Contains(uid) {
			added = append(added, uid)
		}
	}
	for uid := range s {
		if !next.Contains(uid) {
			removed = append(removed, uid)
		}
	}
	sort.Ints(added)
	sort.Ints(removed)
	return added, removed
}
