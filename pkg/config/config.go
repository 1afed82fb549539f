// Package config loads and validates the panerun YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/panerun/panerun/pkg/models"
)

// DefaultPath is the config file used when no path is given on the
// command line.
const DefaultPath = "panerun.yaml"

// DefaultScrollback is the per-process line retention when the config does
// not set one.
const DefaultScrollback = 1000

// The supervisor splits one terminal screen between all processes; beyond
// this count the panes stop being legible.
const MaxProcesses = 6

// Config is the parsed configuration file.
type Config struct {
	Scrollback int                  `yaml:"scrollback"`
	Processes  []models.ProcessSpec `yaml:"processes"`
}

// Load reads and validates a config file. Working directories are resolved
// to absolute paths; entries that fail validation make the whole load fail,
// before any process is spawned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Scrollback <= 0 {
		cfg.Scrollback = DefaultScrollback
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Processes) < 1 || len(c.Processes) > MaxProcesses {
		return fmt.Errorf("number of processes must be between 1 and %d, got %d", MaxProcesses, len(c.Processes))
	}

	seen := make(map[string]bool, len(c.Processes))
	for i := range c.Processes {
		p := &c.Processes[i]
		if p.Name == "" {
			return fmt.Errorf("process %d: name is required", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate process name %q", p.Name)
		}
		seen[p.Name] = true

		if p.Command == "" {
			return fmt.Errorf("process %q: command is required", p.Name)
		}

		if p.CWD == "" {
			p.CWD = "."
		}
		abs, err := filepath.Abs(p.CWD)
		if err != nil {
			return fmt.Errorf("process %q: invalid working directory: %w", p.Name, err)
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("process %q: invalid working directory: %w", p.Name, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("process %q: working directory %s is not a directory", p.Name, abs)
		}
		p.CWD = abs
	}
	return nil
}
