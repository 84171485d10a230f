// Package version carries build metadata stamped via -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the one-line version banner.
func String() string {
	return fmt.Sprintf("edupal %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}
