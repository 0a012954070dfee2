package config

import (
	"os"
	"path/filepath"
)

// EnvOverride names the environment variable that overrides the default
// configuration file path, following the teacher's PAL/args convention of
// letting an environment variable override a PAL-resolved default.
const EnvOverride = "NETUAL_CONFIG"

// Resolver locates the configuration file on disk.
type Resolver interface {
	Resolve() (string, error)
}

type resolver struct{}

// NewResolver returns the default Resolver: $NETUAL_CONFIG if set, otherwise
// /etc/netual/server_configuration.json.
func NewResolver() Resolver {
	return resolver{}
}

func (resolver) Resolve() (string, error) {
	if p := os.Getenv(EnvOverride); p != "" {
		return p, nil
	}
	return filepath.Join(string(os.PathSeparator), "etc", "netual", "server_configuration.json"), nil
}

// fixedPathResolver always resolves to the path it was constructed with,
// for callers that take an explicit --config flag.
type fixedPathResolver string

// NewResolverWithPath returns a Resolver that always resolves to path,
// bypassing NETUAL_CONFIG and the default location.
func NewResolverWithPath(path string) Resolver {
	return fixedPathResolver(path)
}

func (r fixedPathResolver) Resolve() (string, error) { return string(r), nil }
