// Package mcp implements the tools.Gateway contract over the Model
// Context Protocol. Each configured server gets one Client holding an
// MCP session; the Gateway routes immediate tool calls to the client for
// the descriptor's server and converts results back into plain payloads.
//
// Tool discovery turns the servers' advertised tools into immediate
// dispatch descriptors, including required-argument lists extracted from
// the input schemas.
package mcp
