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

// Package metadata contains build information of the executable, usually
// provided by automated build systems. Default values are populated if not
// overridden by the build system via linker flags.
package metadata

import "fmt"

var (
	// Version comes from the BUILD_VERSION env variable (set via linker flags)
	Version = "source.dev-build"
	// BuildCommit comes from the BUILD_COMMIT env variable (set via linker flags)
	BuildCommit = ""
	// BuildBranch comes from the BUILD_BRANCH env variable (set via linker flags)
	BuildBranch = "<unknown>"
	// BuildNumber comes from the BUILD_NUMBER env variable (set via linker flags)
	BuildNumber = "dev-build"
)

// VersionAsString returns the version assigned by the build system
func VersionAsString() string {
	return Version
}

// BuildAsString returns all defined build constants as a single string
func BuildAsString() string {
	return FormatString(BuildCommit, BuildBranch, BuildNumber)
}

// FormatString formats build info to string with given build data
func FormatString(commit, branch, buildNumber string) string {
	return fmt.Sprintf("Branch: %s. Build id: %s. Commit: %s", branch, buildNumber, commit)
}

// VersionAsSummary formats a complete human readable version summary
func VersionAsSummary(licenseCopyright string) string {
	return fmt.Sprintf("netfence version: %s (%s)\n\n%s", VersionAsString(), BuildAsString(), licenseCopyright)
}

// LicenseCopyright returns a short license warranty/conditions blurb
func LicenseCopyright(warrantyHint, conditionsHint string) string {
	return fmt.Sprintf(
		`NetFence per-application firewall
Copyright (C) 2025 The "NetFence" Authors.

This program comes with ABSOLUTELY NO WARRANTY; for details %s.
This is free software, and you are welcome to redistribute it
under certain conditions; %s for details.`,
		warrantyHint,
		conditionsHint,
	)
}
