// Package version exposes build-time version information for the wraphound binary.
package version

import "runtime/debug"

// Populated via -ldflags at release build time; InitBinaryVersion fills in
// whatever the Go build info can recover for plain `go install` builds.
var (
	Version = "dev"
	Commit  = "<unknown>"
	Date    = "<unknown>"
)

// InitBinaryVersion backfills Version and Commit from the embedded module
// build info when they were not set by the linker.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	if Commit != "<unknown>" {
		return
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			Commit = setting.Value
		}

		if setting.Key == "vcs.time" {
			Date = setting.Value
		}
	}
}
