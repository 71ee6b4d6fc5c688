// Package config loads gateway configuration from an optional YAML file and
// the environment, with the environment always winning.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway's runtime configuration.
type Config struct {
	Bind          string `yaml:"bind" json:"bind"`
	Port          int    `yaml:"port" json:"port"`
	PolicyPath    string `yaml:"policy_path" json:"policy_path"`
	PromptPath    string `yaml:"prompt_path" json:"prompt_path"`
	LogPath       string `yaml:"log_path" json:"log_path"`
	JournalPath   string `yaml:"journal_path" json:"journal_path"`
	ContextPath   string `yaml:"context_path" json:"context_path"`
	MaxBodyBytes  int64  `yaml:"max_body_bytes" json:"max_body_bytes"`
	AllowRemote   bool   `yaml:"allow_remote" json:"allow_remote"`
	WorldsFeedURL string `yaml:"worlds_feed_url" json:"worlds_feed_url"`
}

// defaults mirrors spec.md §6.2.
func defaults() *Config {
	return &Config{
		Bind:          "127.0.0.1",
		Port:          8787,
		PolicyPath:    "policies/agent-permissions.json",
		PromptPath:    "gateway/system-prompts.json",
		LogPath:       "gateway/logs/gateway.jsonl",
		JournalPath:   journalDefaultPath(),
		ContextPath:   "gateway/context.json",
		MaxBodyBytes:  1048576,
		AllowRemote:   false,
		WorldsFeedURL: "https://api.blackroad.io/v1/worlds",
	}
}

func journalDefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".blackroad/gateway-memory/journal.jsonl"
	}
	return home + "/.blackroad/gateway-memory/journal.jsonl"
}

// Load builds the gateway configuration. If path is non-empty and the file
// exists, its YAML contents seed the config; environment variables are then
// applied on top, so env always wins per spec.md §6.2.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BLACKROAD_GATEWAY_BIND"); v != "" {
		cfg.Bind = v
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_POLICY_PATH"); v != "" {
		cfg.PolicyPath = v
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_PROMPT_PATH"); v != "" {
		cfg.PromptPath = v
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("BLACKROAD_GATEWAY_ALLOW_REMOTE"); v != "" {
		cfg.AllowRemote = v == "true"
	}
}

// Addr returns the host:port the gateway should bind to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
