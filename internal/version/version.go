// Package version exposes build metadata stamped in through -ldflags, served
// by the /v1/version endpoint.
package version

// Defaults cover local, unstamped builds.
var (
	// Version is the release tag, or "dev" for untagged builds.
	Version = "dev"
	// Commit is the git commit the binary was built from.
	Commit = "unknown"
	// BuildTime is when the binary was produced.
	BuildTime = "unknown"
)
