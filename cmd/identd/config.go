package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/identd/internal/config"
)

// fileConfig is the on-disk shape. Fields overlay the defaults only when
// actually present in the file.
type fileConfig struct {
	ID          string   `toml:"id"`
	Addr        string   `toml:"addr"`
	StatePath   string   `toml:"state_path"`
	CorsOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
}

func loadAgentConfig(path string) (config.AgentConfig, error) {
	cfg := config.AgentConfig{}.WithDefaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.AgentConfig{}, fmt.Errorf("load identd config: %w", err)
	}

	if meta.IsDefined("id") {
		cfg.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}
	if meta.IsDefined("state_path") {
		if p := strings.TrimSpace(raw.StatePath); p != "" {
			cfg.StatePath = p
		}
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}

	if err := config.ValidateAgentConfig(cfg); err != nil {
		return config.AgentConfig{}, err
	}
	return cfg, nil
}
