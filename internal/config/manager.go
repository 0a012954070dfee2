package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Manager is the façade the rest of the process uses to obtain a validated
// Config, creating one with defaults on first run the way the teacher's
// ServerConfigurationManager does.
type Manager struct {
	resolver Resolver
	reader   Reader
	writer   Writer
}

// NewManager constructs a Manager backed by the default on-disk resolver.
func NewManager() (*Manager, error) {
	return NewManagerWithResolver(NewResolver())
}

// NewManagerWithResolver allows tests to inject a Resolver pointing at a
// temporary path.
func NewManagerWithResolver(resolver Resolver) (*Manager, error) {
	path, err := resolver.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration path: %w", err)
	}
	return &Manager{
		resolver: resolver,
		reader:   newFileReader(path),
		writer:   newFileWriter(path),
	}, nil
}

// Load reads the configuration, writing a default one first if none exists,
// and returns it only after Validate succeeds.
func (m *Manager) Load() (*Config, error) {
	path, err := m.resolver.Resolve()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configuration path: %w", err)
	}

	if _, statErr := os.Stat(path); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			if writeErr := m.writer.Write(*Default()); writeErr != nil {
				return nil, fmt.Errorf("could not write default configuration: %w", writeErr)
			}
		} else {
			return nil, statErr
		}
	}

	c, err := m.reader.Read()
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return c, nil
}

func dirOf(path string) string {
	return filepath.Dir(path)
}
