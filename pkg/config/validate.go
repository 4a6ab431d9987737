package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid
// values. Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	for name, p := range c.Providers {
		switch p.Kind {
		case "mock", "openai_compat":
			// valid
		default:
			errs = append(errs, fmt.Errorf("providers.%s.kind must be \"mock\" or \"openai_compat\", got %q", name, p.Kind))
		}
		if p.Kind == "openai_compat" && p.BaseURL == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required for kind \"openai_compat\"", name))
		}
	}

	if c.DefaultProvider != "" && len(c.Providers) > 0 {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			errs = append(errs, fmt.Errorf("default_provider %q is not in providers", c.DefaultProvider))
		}
	}

	for i, tool := range c.Tools {
		if tool.Name == "" {
			errs = append(errs, fmt.Errorf("tools[%d].name is required", i))
		}
		switch tool.Kind {
		case "immediate", "queued":
			// valid
		default:
			errs = append(errs, fmt.Errorf("tools[%d].kind must be \"immediate\" or \"queued\", got %q", i, tool.Kind))
		}
	}

	switch c.Queue.Type {
	case "memory", "nats":
		// valid
	default:
		errs = append(errs, fmt.Errorf("queue.type must be \"memory\" or \"nats\", got %q", c.Queue.Type))
	}
	if c.Queue.Type == "nats" && c.Queue.NATS.URL == "" {
		errs = append(errs, fmt.Errorf("queue.nats.url is required when queue.type is \"nats\""))
	}

	switch c.Usage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("usage.type must be \"memory\" or \"postgres\", got %q", c.Usage.Type))
	}
	if c.Usage.Type == "postgres" {
		if c.Usage.Postgres.DSN == "" && c.Usage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("usage.postgres.dsn or usage.postgres.dsn_file is required when usage.type is \"postgres\""))
		}
	}

	return errors.Join(errs...)
}
