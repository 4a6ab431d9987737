// Package events defines the lifecycle events emitted by the pipeline and
// the tool executor, and the Sink contract through which external
// collaborators (cost tracking, logging, analytics) consume them.
//
// Emission is fire-and-forget: Emit has no error return, and a failing
// sink never disturbs request processing. Components receive their sink
// explicitly at construction; there is no global event helper.
//
// The JSON field shapes of the event types are consumed by downstream
// billing and observability integrations and must be kept stable.
package events
