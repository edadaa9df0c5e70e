package conf

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultWorkers is the number of sessions a batch runs at once
const DefaultWorkers = 4

// Config holds all the config values
type Config struct {
	// max number of sessions running at the same time
	Workers  int            `yaml:"workers"`
	Sessions []*SessionConf `yaml:"sessions"`
}

// LoadConfig parses the [config].yaml file and loads its values
// into the Config struct
func LoadConfig(filePath string) (*Config, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("error while reading config file: %w", err)
	}
	defer f.Close()

	// set some reasonable defaults
	cfg := Config{
		Workers: DefaultWorkers,
	}

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("error while parsing config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		c.Workers = DefaultWorkers
	}
	if len(c.Sessions) == 0 {
		return errors.New("at least one session is required")
	}

	names := make(map[string]bool, len(c.Sessions))
	for i, s := range c.Sessions {
		if s == nil {
			return fmt.Errorf("session #%d is empty", i+1)
		}
		if s.Name == "" {
			s.Name = fmt.Sprintf("session-%d", i+1)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate session name %q", s.Name)
		}
		names[s.Name] = true

		if err := s.ApplyDefaults(); err != nil {
			return fmt.Errorf("session %q: %w", s.Name, err)
		}
	}
	return nil
}

// Select keeps only the named sessions, in configuration order
func (c *Config) Select(names ...string) error {
	if len(names) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var sessions []*SessionConf
	for _, s := range c.Sessions {
		if wanted[s.Name] {
			sessions = append(sessions, s)
			delete(wanted, s.Name)
		}
	}
	for n := range wanted {
		return fmt.Errorf("unknown session %q", n)
	}
	c.Sessions = sessions
	return nil
}
