package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig       `json:"server"`
	Providers    []ProviderConfig   `json:"providers"`
	Database     DatabaseConfig     `json:"database"`
	Orchestrator OrchestratorConfig `json:"orchestrator"`
	Security     SecurityConfig     `json:"security"`
	Notify       NotifyConfig       `json:"notify"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
}

type ProviderConfig struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"api_key"`
	Models   []string `json:"models,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
}

type PostgresConfig struct {
	DSN           string `json:"dsn"`
	MigrationsDir string `json:"migrations_dir"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type OrchestratorConfig struct {
	PlannerModel          string `json:"planner_model"`
	ExecutorModel         string `json:"executor_model"`
	PlannerMaxTurns       int    `json:"planner_max_turns"`
	PlannerMaxTokens      int    `json:"planner_max_tokens"`
	ExecutorMaxTurns      int    `json:"executor_max_turns"`
	ExecutorMaxTokens     int    `json:"executor_max_tokens"`
	WindowCapacity        int    `json:"window_capacity"`
	WindowEntryMaxChars   int    `json:"window_entry_max_chars"`
	DigestStepMaxChars    int    `json:"digest_step_max_chars"`
	WatchdogTTLMinutes    int    `json:"watchdog_ttl_minutes"`
	ReaperIntervalSeconds int    `json:"reaper_interval_seconds"`
}

type SecurityConfig struct {
	AllowedPrefixes []string `json:"allowed_prefixes"`
}

type NotifyConfig struct {
	SlackWebhookURL string `json:"slack_webhook_url"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}
