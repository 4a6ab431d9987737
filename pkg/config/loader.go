package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WEICHE_CONFIG env, ./config.yaml, /etc/weiche/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery
// order: explicit path, WEICHE_CONFIG env var, ./config.yaml,
// /etc/weiche/config.yaml. Returns empty string if none exists.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("WEICHE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/weiche/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps WEICHE_* environment variables onto config
// fields. Environment values win over the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WEICHE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WEICHE_DEFAULT_PROVIDER"); v != "" {
		cfg.DefaultProvider = v
	}
	if v := os.Getenv("WEICHE_QUEUE"); v != "" {
		cfg.Queue.Type = v
	}
	if v := os.Getenv("WEICHE_NATS_URL"); v != "" {
		cfg.Queue.NATS.URL = v
	}
	if v := os.Getenv("WEICHE_USAGE"); v != "" {
		cfg.Usage.Type = v
	}
	if v := os.Getenv("WEICHE_JWT_SECRET"); v != "" {
		cfg.Pipeline.JWT.Secret = v
	}

	// WEICHE_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("WEICHE_MCP_SERVERS"); v != "" {
		var servers []MCPServerConfig
		if err := json.Unmarshal([]byte(v), &servers); err == nil && len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}
}

// resolveFileReferences reads _file fields and populates the
// corresponding value fields. The value field wins when both are set.
func resolveFileReferences(cfg *Config) error {
	for name, p := range cfg.Providers {
		if p.APIKeyFile != "" && p.APIKey == "" {
			val, err := readSecretFile(p.APIKeyFile)
			if err != nil {
				return fmt.Errorf("providers.%s.api_key_file: %w", name, err)
			}
			p.APIKey = val
			cfg.Providers[name] = p
		}
	}

	if cfg.Pipeline.JWT.SecretFile != "" && cfg.Pipeline.JWT.Secret == "" {
		val, err := readSecretFile(cfg.Pipeline.JWT.SecretFile)
		if err != nil {
			return fmt.Errorf("pipeline.jwt.secret_file: %w", err)
		}
		cfg.Pipeline.JWT.Secret = val
	}

	if cfg.Usage.Postgres.DSNFile != "" && cfg.Usage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Usage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("usage.postgres.dsn_file: %w", err)
		}
		cfg.Usage.Postgres.DSN = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding
// whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
