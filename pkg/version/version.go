// Package version exposes the freightfocus build version.
package version

// Version is the freightfocus version string. It is overridden at build time:
//
//	go build -ldflags "-X github.com/rshade/freightfocus/pkg/version.Version=v0.3.0"
//
//nolint:gochecknoglobals // set via ldflags
var Version = "dev"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
