// Package version holds build information injected via ldflags.
package version

var (
	// Version is the semantic version of the build.
	Version = "dev"
	// GitCommit is the git commit hash the binary was built from.
	GitCommit = "unknown"
	// BuildDate is the UTC build timestamp.
	BuildDate = "unknown"
)
