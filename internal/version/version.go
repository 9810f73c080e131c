// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

var (
	// Version is the release version, e.g. set with
	// -ldflags "-X github.com/psi-fda/scanmodel/internal/version.Version=v1.0.0".
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String returns the version line printed by the CLIs.
func String() string {
	if Commit == "unknown" && Date == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
