// Package queue provides the background job hand-off used by the queued
// tool-execution branch. Enqueue is fire-and-forget: the caller receives
// an acknowledgement that the job was accepted, never its eventual
// outcome. Consumption, retries, and result handling belong to the queue
// consumer, outside this module.
//
// Two backends are provided: an in-process channel queue for tests and
// single-binary deployments, and a NATS-backed queue for distributed
// workers.
package queue
