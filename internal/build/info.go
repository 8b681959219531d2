// Package build exposes build-time metadata injected via ldflags.
package build

import "fmt"

// Version, Commit, and Branch are set at build time by:
//
//	-ldflags "-X github.com/xtg/pdo/internal/build.Version=... ..."
var (
	Version = "dev"
	Commit  = "unknown"
	Branch  = "unknown"
)

// String renders the metadata for --version output.
func String() string {
	return fmt.Sprintf("%s (commit %s, branch %s)", Version, Commit, Branch)
}
