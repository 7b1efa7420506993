// Package config loads and validates identd TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// AgentConfig configures the identd agent process.
type AgentConfig struct {
	// ID pins the node identifier instead of the persisted one. Normally
	// left empty so the state file owns identity across restarts.
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	StatePath   string   `toml:"state_path"`
	CorsOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
}

// ClientConfig configures identity resolution against one agent.
type ClientConfig struct {
	Addr    string `toml:"addr"`
	Timeout string `toml:"timeout"`
}

func (c AgentConfig) WithDefaults() AgentConfig {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":7400"
	}
	if strings.TrimSpace(c.StatePath) == "" {
		c.StatePath = filepath.Join("local", "node_id")
	}
	return c
}

func (c ClientConfig) WithDefaults() ClientConfig {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = "127.0.0.1:7400"
	}
	if strings.TrimSpace(c.Timeout) == "" {
		c.Timeout = "5s"
	}
	return c
}

// ResolveTimeout parses the configured timeout string.
func (c ClientConfig) ResolveTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.Timeout))
	if err != nil {
		return 0, fmt.Errorf("client config invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("client config timeout must be positive, got %q", c.Timeout)
	}
	return d, nil
}

func LoadAgentConfig(path string) (AgentConfig, error) {
	var cfg AgentConfig
	if err := loadToml(path, &cfg); err != nil {
		return AgentConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateAgentConfig(cfg); err != nil {
		return AgentConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateAgentConfig(cfg AgentConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("agent config missing addr")
	}
	if strings.TrimSpace(cfg.StatePath) == "" && strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("agent config needs state_path or a pinned id")
	}
	for i, origin := range cfg.CorsOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("cors_origins[%d] is empty", i)
		}
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("client config missing addr")
	}
	if _, err := cfg.ResolveTimeout(); err != nil {
		return err
	}
	return nil
}
