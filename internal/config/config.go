// Package config holds the server's on-disk configuration: a JSON document
// read/written through small Reader/Writer/Resolver seams, defaulted and
// validated the way the teacher's server-side settings package does.
package config

import (
	"fmt"
	"net/netip"
	"time"
)

// Config is the full set of recognized configuration options from spec.md §6.
type Config struct {
	TunnelBind  string `json:"tunnel_bind"`
	ControlBind string `json:"control_bind"`

	IfaceName    string `json:"iface_name"`
	IfaceAddress string `json:"iface_address"`
	IfaceNetmask string `json:"iface_netmask"`

	SessionTimeout   time.Duration `json:"session_timeout"`
	PathActiveWindow time.Duration `json:"path_active_window"`
	DedupCapacity    uint32        `json:"dedup_capacity"`
	ReapInterval     time.Duration `json:"reap_interval"`

	LogLevel string `json:"log_level"`

	// MetricsBind, when non-empty, exposes Prometheus metrics over HTTP.
	// This is ambient observability, not a spec.md feature; empty disables it.
	MetricsBind string `json:"metrics_bind"`
}

// Default returns a Config populated with spec.md's stated defaults.
func Default() *Config {
	return &Config{
		TunnelBind:       "0.0.0.0:9999",
		ControlBind:      "0.0.0.0:9998",
		IfaceName:        "netual0",
		IfaceAddress:     "10.0.0.1",
		IfaceNetmask:     "255.255.255.0",
		SessionTimeout:   120 * time.Second,
		PathActiveWindow: 10 * time.Second,
		DedupCapacity:    100,
		ReapInterval:     30 * time.Second,
		LogLevel:         "info",
	}
}

// EnsureDefaults fills any zero-valued field with its default, the way the
// teacher's Configuration.EnsureDefaults does for per-protocol settings.
func (c *Config) EnsureDefaults() *Config {
	d := Default()
	if c.TunnelBind == "" {
		c.TunnelBind = d.TunnelBind
	}
	if c.ControlBind == "" {
		c.ControlBind = d.ControlBind
	}
	if c.IfaceName == "" {
		c.IfaceName = d.IfaceName
	}
	if c.IfaceAddress == "" {
		c.IfaceAddress = d.IfaceAddress
	}
	if c.IfaceNetmask == "" {
		c.IfaceNetmask = d.IfaceNetmask
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.PathActiveWindow == 0 {
		c.PathActiveWindow = d.PathActiveWindow
	}
	if c.DedupCapacity == 0 {
		c.DedupCapacity = d.DedupCapacity
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = d.ReapInterval
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Validate checks each field on its own (bind addresses parse as addr:port,
// interface address and netmask are IPv4, tuning knobs are positive, the log
// level is known), failing fast at startup rather than binding with a
// silently malformed configuration. No check spans more than one field.
func (c *Config) Validate() error {
	if _, err := netip.ParseAddrPort(ensureHost(c.TunnelBind)); err != nil {
		return fmt.Errorf("invalid 'tunnel_bind' %q: %w", c.TunnelBind, err)
	}
	if _, err := netip.ParseAddrPort(ensureHost(c.ControlBind)); err != nil {
		return fmt.Errorf("invalid 'control_bind' %q: %w", c.ControlBind, err)
	}
	if c.IfaceName == "" {
		return fmt.Errorf("'iface_name' must not be empty")
	}
	addr, err := netip.ParseAddr(c.IfaceAddress)
	if err != nil {
		return fmt.Errorf("invalid 'iface_address' %q: %w", c.IfaceAddress, err)
	}
	if !addr.Is4() {
		return fmt.Errorf("'iface_address' must be an IPv4 address, got %q", c.IfaceAddress)
	}
	mask, err := netip.ParseAddr(c.IfaceNetmask)
	if err != nil {
		return fmt.Errorf("invalid 'iface_netmask' %q: %w", c.IfaceNetmask, err)
	}
	if !mask.Is4() {
		return fmt.Errorf("'iface_netmask' must be an IPv4 netmask, got %q", c.IfaceNetmask)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("'session_timeout' must be > 0")
	}
	if c.PathActiveWindow <= 0 {
		return fmt.Errorf("'path_active_window' must be > 0")
	}
	if c.DedupCapacity == 0 {
		return fmt.Errorf("'dedup_capacity' must be > 0")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("'reap_interval' must be > 0")
	}
	if _, ok := validLogLevels[c.LogLevel]; !ok {
		return fmt.Errorf("invalid 'log_level' %q", c.LogLevel)
	}
	return nil
}

var validLogLevels = map[string]struct{}{
	"error": {}, "warn": {}, "info": {}, "debug": {}, "trace": {},
}

// ensureHost lets bind addresses of the form ":9999" parse as an
// AddrPort by supplying the IPv4 unspecified address, matching how
// net.Listen treats an empty host.
func ensureHost(bind string) string {
	if len(bind) > 0 && bind[0] == ':' {
		return "0.0.0.0" + bind
	}
	return bind
}
