// Package tools implements unified tool dispatch. Tool calls produced by
// a provider driver are routed by their registered descriptor: immediate
// tools execute synchronously through an MCP gateway, queued tools are
// published as background jobs and acknowledged without waiting for a
// worker.
//
// Every dispatched call produces exactly one result and a matched pair of
// lifecycle events (ToolCalled, then ToolCompleted or ToolFailed). A
// failing call in a batch never prevents the remaining calls from
// running.
package tools
