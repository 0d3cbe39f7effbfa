package app

import "fmt"

// Build information populated via -ldflags at build time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// VersionString formats the build information for -version and report footers.
func VersionString() string {
	return fmt.Sprintf("%s (%s, %s)", BuildVersion, BuildCommit, BuildDate)
}
