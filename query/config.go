package query

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds Database initialization parameters. The Observer field is a
// name resolved through the observability registry so it can come from a
// config file.
//
// Example YAML:
//
//	name: fees
//	observer: slog
type Config struct {
	// Name identifies the database in events.
	Name string `json:"name" yaml:"name"`

	// Observer names the registered observer ("noop", "slog", ...).
	Observer string `json:"observer" yaml:"observer"`
}

// DefaultConfig returns a Config that logs through the default slog logger.
func DefaultConfig(name string) Config {
	return Config{
		Name:     name,
		Observer: "slog",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Name != "" {
		c.Name = source.Name
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

// LoadConfig reads a YAML or JSON config file and merges it over
// DefaultConfig("").
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig("")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		if jsonErr := json.Unmarshal(data, &loaded); jsonErr != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
