// Package version carries build metadata injected via ldflags, with a
// module build info fallback for plain go-build binaries.
package version

import (
	"runtime/debug"
	"strings"
)

// Version is set during build via ldflags.
var Version = "dev"

// BuildTime is set during build via ldflags.
var BuildTime = "unknown"

// GitCommit is set during build via ldflags.
var GitCommit = "unknown"

// GetVersionInfo returns the effective version string.
func GetVersionInfo() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimPrefix(info.Main.Version, "v"); v != "" && v != "(devel)" {
			return v
		}
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return "dev-" + s.Value[:7]
			}
		}
	}
	return Version
}

// GetFullVersionInfo returns the version with commit and build time when
// known.
func GetFullVersionInfo() string {
	version := GetVersionInfo()
	if BuildTime != "unknown" && GitCommit != "unknown" {
		return version + " (built " + BuildTime + ", commit " + GitCommit + ")"
	}
	if GitCommit != "unknown" {
		return version + " (commit " + GitCommit + ")"
	}
	return version
}
