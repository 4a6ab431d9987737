package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/weiche-dev/weiche/pkg/tools"
)

// Gateway routes immediate tool calls to the MCP client for the
// descriptor's server. It implements tools.Gateway.
type Gateway struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

// Ensure Gateway implements tools.Gateway at compile time.
var _ tools.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway over the given connected clients, keyed
// by server name.
func NewGateway(clients map[string]*Client, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{clients: clients, logger: logger}
}

// ExecuteTool implements tools.Gateway. An empty server name is allowed
// when exactly one server is configured.
func (g *Gateway) ExecuteTool(ctx context.Context, server, tool string, args map[string]any) (any, error) {
	client, err := g.clientFor(server)
	if err != nil {
		return nil, err
	}
	return client.CallTool(ctx, tool, args)
}

func (g *Gateway) clientFor(server string) (*Client, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if server == "" {
		if len(g.clients) == 1 {
			for _, c := range g.clients {
				return c, nil
			}
		}
		return nil, fmt.Errorf("tool descriptor names no server and %d servers are configured", len(g.clients))
	}

	client, ok := g.clients[server]
	if !ok {
		return nil, fmt.Errorf("no MCP server %q configured", server)
	}
	return client, nil
}

// RegisterDiscoveredTools discovers every server's tools and registers
// them as immediate descriptors. A server that fails discovery is
// logged and skipped so one bad server does not hide the others' tools.
func (g *Gateway) RegisterDiscoveredTools(ctx context.Context, registry *tools.Registry) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for name, client := range g.clients {
		descs, err := client.DiscoverTools(ctx)
		if err != nil {
			g.logger.Error("tool discovery failed", "server", name, "error", err)
			continue
		}
		for _, desc := range descs {
			registry.Register(desc)
		}
		g.logger.Info("discovered tools", "server", name, "count", len(descs))
	}
}

// Close closes all client sessions, returning the last error seen.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var lastErr error
	for name, client := range g.clients {
		if err := client.Close(); err != nil {
			g.logger.Warn("closing MCP client failed", "server", name, "error", err)
			lastErr = err
		}
	}
	return lastErr
}

// ConnectAll builds and connects a client per server configuration and
// returns a gateway over them. On any connection failure the already
// connected clients are closed.
func ConnectAll(ctx context.Context, configs []ServerConfig, logger *slog.Logger) (*Gateway, error) {
	clients := make(map[string]*Client, len(configs))
	for _, cfg := range configs {
		client := NewClient(cfg)
		if err := client.Connect(ctx); err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, err
		}
		clients[cfg.Name] = client
	}
	return NewGateway(clients, logger), nil
}
