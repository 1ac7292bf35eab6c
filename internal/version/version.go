// Package version holds build metadata injected at link time.
package version

// Populated via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)
