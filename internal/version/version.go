// Package version holds the release version of the outreach binaries.
package version

// Current is the release version, without a "v" prefix.
const Current = "0.1.0"

// Commit is set at build time with -ldflags "-X .../internal/version.Commit=<sha>".
var Commit = "dev"

// String returns "<version> (<commit>)".
func String() string {
	return Current + " (" + Commit + ")"
}
