// Package config handles loading and validation of jobsensor.yaml project configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwsmith1983/jobsensor/pkg/types"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = "jobsensor.yaml"

// Load reads and parses jobsensor.yaml from the given directory.
func Load(dir string) (*types.ProjectConfig, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a project configuration document.
func Parse(data []byte) (*types.ProjectConfig, error) {
	var cfg types.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *types.ProjectConfig) error {
	conns := make(map[string]types.Connection, len(cfg.Connections))
	for i, c := range cfg.Connections {
		if c.ID == "" {
			return fmt.Errorf("connections[%d]: id is required", i)
		}
		if _, dup := conns[c.ID]; dup {
			return fmt.Errorf("connection %q defined more than once", c.ID)
		}
		switch c.Type {
		case types.ConnectionGCP, types.ConnectionAWS:
		default:
			return fmt.Errorf("connection %q: unknown type %q", c.ID, c.Type)
		}
		if b := c.Breaker; b != nil && (b.FailThreshold < 0 || b.Cooldown < 0 || b.FailWindow < 0) {
			return fmt.Errorf("connection %q: breaker settings must not be negative", c.ID)
		}
		conns[c.ID] = c
	}

	if len(cfg.Sensors) == 0 {
		return fmt.Errorf("at least one sensor is required")
	}
	seen := make(map[string]bool, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		if s.TaskID == "" {
			return fmt.Errorf("sensors[%d]: taskId is required", i)
		}
		if seen[s.TaskID] {
			return fmt.Errorf("sensor %q defined more than once", s.TaskID)
		}
		seen[s.TaskID] = true

		if !s.Type.Valid() {
			return fmt.Errorf("sensor %q: unknown type %q", s.TaskID, s.Type)
		}
		if s.Timeout < 0 || s.PokeInterval < 0 {
			return fmt.Errorf("sensor %q: timeout and pokeInterval must not be negative", s.TaskID)
		}
		if s.ConnectionID == "" {
			continue
		}
		c, ok := conns[s.ConnectionID]
		if !ok {
			return fmt.Errorf("sensor %q: unknown connection %q", s.TaskID, s.ConnectionID)
		}
		if want := s.Type.ConnectionKind(); c.Type != want {
			return fmt.Errorf("sensor %q: %s sensor needs a %s connection, %q is %s", s.TaskID, s.Type, want, c.ID, c.Type)
		}
	}
	return nil
}
