// Package config provides unified configuration for the weiche pipeline.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WEICHE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the weiche pipeline.
type Config struct {
	Server          ServerConfig              `yaml:"server"`
	Providers       map[string]ProviderConfig `yaml:"providers"`
	DefaultProvider string                    `yaml:"default_provider"`
	Pipeline        PipelineConfig            `yaml:"pipeline"`
	Tools           []ToolConfig              `yaml:"tools"`
	MCP             MCPConfig                 `yaml:"mcp"`
	Queue           QueueConfig               `yaml:"queue"`
	Usage           UsageConfig               `yaml:"usage"`
	Observability   ObservabilityConfig       `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 120s
}

// ProviderConfig describes one configured provider, keyed by name in
// Config.Providers.
type ProviderConfig struct {
	Kind          string        `yaml:"kind"` // "mock" or "openai_compat"
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	APIKeyFile    string        `yaml:"api_key_file"` // _file variant for api_key
	DefaultModel  string        `yaml:"default_model"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	MaxTokens     int           `yaml:"max_tokens"`
}

// PipelineConfig holds middleware pipeline settings.
type PipelineConfig struct {
	// SlowThresholdMS is the unit duration above which a slow-middleware
	// warning is logged. Default: 100.
	SlowThresholdMS int `yaml:"slow_threshold_ms"`

	// JWT configures the jwt_auth named unit. The unit is only wired
	// when a secret is present.
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig holds settings for the jwt_auth middleware unit.
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	SecretFile string `yaml:"secret_file"` // _file variant for secret
	UserClaim  string `yaml:"user_claim"`  // default: "sub"
	Issuer     string `yaml:"issuer"`
}

// ToolConfig declares a dispatchable tool.
type ToolConfig struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"` // "immediate" or "queued"
	Server   string   `yaml:"server"`
	Topic    string   `yaml:"topic"`
	Required []string `yaml:"required"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Servers []MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // "sse" or "streamable-http"
	URL       string            `yaml:"url"`
	Headers   map[string]string `yaml:"headers"`
}

// QueueConfig holds background job queue settings.
type QueueConfig struct {
	Type   string     `yaml:"type"`   // "memory" or "nats", default: "memory"
	Buffer int        `yaml:"buffer"` // memory queue capacity per topic
	NATS   NATSConfig `yaml:"nats"`
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"` // default: "weiche.jobs"
}

// UsageConfig holds usage ledger settings.
type UsageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"` // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Pipeline: PipelineConfig{
			SlowThresholdMS: 100,
		},
		Queue: QueueConfig{
			Type: "memory",
			NATS: NATSConfig{
				SubjectPrefix: "weiche.jobs",
			},
		},
		Usage: UsageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
