// FILE: actionwisp/src/internal/version/version.go
package version

import "fmt"

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Name is the product name reported by the binary and status endpoint
const Name = "ActionWisp"

// String returns the full build description
func String() string {
	return fmt.Sprintf("%s %s (commit: %s, built: %s)", Name, Version, GitCommit, BuildTime)
}

// Short returns the version tag
func Short() string {
	return Version
}

// UserAgent identifies the client to servers
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Name, Version)
}
