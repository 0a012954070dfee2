package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Reader loads a Config from its resolved path.
type Reader interface {
	Read() (*Config, error)
}

// Writer persists a Config to its resolved path.
type Writer interface {
	Write(Config) error
}

type fileReader struct {
	path string
}

func newFileReader(path string) Reader {
	return &fileReader{path: path}
}

func (r *fileReader) Read() (*Config, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration %s: %w", r.path, err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", r.path, err)
	}
	c.EnsureDefaults()
	return &c, nil
}

type fileWriter struct {
	path string
}

func newFileWriter(path string) Writer {
	return &fileWriter{path: path}
}

func (w *fileWriter) Write(c Config) error {
	if err := os.MkdirAll(dirOf(w.path), 0o755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", w.path, err)
	}
	return nil
}
