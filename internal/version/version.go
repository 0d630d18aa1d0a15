// Package version carries the build version, set at link time with
// -ldflags "-X rnadiff/internal/version.Version=v1.2.3".
package version

// Version is the release string printed by `rnadiff version`.
var Version = "dev"
