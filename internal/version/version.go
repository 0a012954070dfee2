// Package version provides build version information injected via ldflags.
package version

// Version is set at build time (e.g. via -ldflags -X); "dev" otherwise.
var Version = "dev"
