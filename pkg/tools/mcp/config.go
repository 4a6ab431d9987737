package mcp

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name is the logical server name referenced by tool descriptors.
	Name string `json:"name" yaml:"name"`

	// Transport is "streamable-http" or "sse". Empty defaults to
	// streamable-http.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	// URL is the server endpoint.
	URL string `json:"url" yaml:"url"`

	// Headers are attached to every request, typically for bearer tokens
	// or API keys.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}
