package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/weiche-dev/weiche/pkg/tools"
)

// Client holds one MCP session against a single server. Call Connect
// before dispatching tools through it.
type Client struct {
	cfg     ServerConfig
	client  *mcp.Client
	session *mcp.ClientSession

	mu          sync.Mutex
	cachedDescs []tools.Descriptor
	discovered  bool
}

// NewClient creates a Client for the given server configuration.
func NewClient(cfg ServerConfig) *Client {
	return &Client{cfg: cfg}
}

// ServerName returns the logical server name.
func (c *Client) ServerName() string { return c.cfg.Name }

// Connect establishes the MCP session, performing the protocol
// handshake over a transport built from the configuration.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport establishes the MCP session over the given
// transport. A nil transport is built from the server configuration;
// tests pass in-memory transports directly.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.client = mcp.NewClient(
		&mcp.Implementation{
			Name:    "weiche",
			Version: "1.0.0",
		},
		&mcp.ClientOptions{
			Capabilities: &mcp.ClientCapabilities{},
		},
	)

	if transport == nil {
		t, err := c.createTransport()
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.cfg.Name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.cfg.Name, err)
	}
	c.session = session
	return nil
}

func (c *Client) createTransport() (mcp.Transport, error) {
	httpClient := c.buildHTTPClient()

	switch c.cfg.Transport {
	case "sse":
		transport := &mcp.SSEClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	case "streamable-http", "":
		transport := &mcp.StreamableClientTransport{Endpoint: c.cfg.URL}
		if httpClient != nil {
			transport.HTTPClient = httpClient
		}
		return transport, nil

	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

func (c *Client) buildHTTPClient() *http.Client {
	if len(c.cfg.Headers) == 0 {
		return nil
	}
	return &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: c.cfg.Headers,
		},
	}
}

// headerTransport adds static headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// DiscoverTools lists the server's tools as immediate dispatch
// descriptors bound to this server. Results are cached after the first
// successful listing.
func (c *Client) DiscoverTools(ctx context.Context) ([]tools.Descriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.discovered {
		return c.cachedDescs, nil
	}

	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	var descs []tools.Descriptor
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.cfg.Name, err)
		}
		desc, convErr := c.convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.cfg.Name, convErr)
		}
		descs = append(descs, desc)
	}

	c.cachedDescs = descs
	c.discovered = true
	return descs, nil
}

// CallTool executes a tool on this server. An error-flagged MCP result
// is surfaced as an error so the caller's failure path runs.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.cfg.Name)
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("calling tool %q on %q: %w", tool, c.cfg.Name, err)
	}

	text := textContent(result)
	if result.IsError {
		return nil, fmt.Errorf("tool %q on %q reported an error: %s", tool, c.cfg.Name, text)
	}
	return text, nil
}

// Close closes the MCP session.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertTool turns an advertised MCP tool into an immediate dispatch
// descriptor, pulling the required-argument list out of the input
// schema so validation can run before dispatch.
func (c *Client) convertTool(t *mcp.Tool) (tools.Descriptor, error) {
	var params json.RawMessage
	var required []string
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return tools.Descriptor{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		params = data

		var schema struct {
			Required []string `json:"required"`
		}
		if err := json.Unmarshal(data, &schema); err == nil {
			required = schema.Required
		}
	}

	return tools.Descriptor{
		Name:        t.Name,
		Kind:        tools.KindImmediate,
		Server:      c.cfg.Name,
		Description: t.Description,
		Parameters:  params,
		Required:    required,
	}, nil
}

// textContent concatenates the text parts of an MCP result.
func textContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
